package hmis

import "hmis-autoentry/internal/browser"

// every page other than the sidebar, the profile header and the workflow controls renders
// inside this iframe
const frameTab = "TabFrame_2"

// confirmation dialogs render in an iframe whose id is this prefix followed by a counter that
// increments each time a dialog is opened
const frameDialogPrefix = "Frame"

var (
	// login
	fieldUsername = browser.ID("UserName")
	fieldPassword = browser.ID("Password")

	// sidebar, top level
	navClients    = browser.ID("ws_2_tab")
	navDashboard  = browser.ID("o1000000033")
	navFindClient = browser.ID("o1000000037")

	// find client
	fieldClientID    = browser.ID("1000005942_Renderer")
	fieldBirthdate   = browser.ID("1000005939_Renderer")
	buttonSearch     = browser.ID("Renderer_SEARCH")
	rowsSearchResult = browser.XPath(`//table[@id='RendererResultSet']//tbody/tr`)
	cellFirstName    = browser.XPath("td[2]")
	cellLastName     = browser.XPath("td[3]")
	cellMiddleName   = browser.XPath("td[4]")
	resultSet        = browser.ID("RendererResultSet")

	// client dashboard
	labelProfileTitle = browser.XPath(`//td[@class="Header ZoneTopRow_2"]//a`)
	linkServices      = browser.XPath(`//td[@class="Header ZoneMiddleRight_2"]//a`)
	linkEnrollments   = browser.XPath(`//td[@class="Header ZoneMiddleMiddle_2"]//a`)
	rowsDashboardEnr  = browser.XPath(`//table[@id="wp85039573formResultSet"]/tbody/tr`)
	cellEnrollment    = browser.XPath("./td[6]")
	linkGroupHeader   = browser.XPath("./td/a")
	buttonActionMenu  = browser.CSS(".action-menu")
	menuAction        = browser.ID("ActionMenu")
	linkEditEnroll    = browser.ID("amb3")

	// client name in the entity header, top level
	labelClientName = browser.XPath(`//span[@aria-label="Name"]`)

	// services
	buttonAddService   = browser.ID("Renderer_1000000216")
	dropdownEnrollment = browser.ID("1000007089_Renderer")
	dropdownService    = browser.ID("1000007094_Renderer")
	fieldUnits         = browser.ID("1000007095_Renderer")
	fieldServiceDate   = browser.ID("1000007086_Renderer")

	// shared form controls
	buttonSave         = browser.ID("Renderer_SAVE")
	buttonSaveAndClose = browser.ID("Renderer_SAVEFINISH")
	buttonFinish       = browser.ID("FinishButton")

	// intake
	buttonNewEnrollment  = browser.ID("Renderer_1000000248")
	dropdownVeteran      = browser.ID("1000006680_Renderer")
	dropdownProject      = browser.ID("1000004260_Renderer")
	rowsHousehold        = browser.XPath(`//table[@id="RendererSF1ResultSet"]//tbody/tr`)
	dropdownsHousehold   = browser.XPath(`//table[@id="RendererSF1ResultSet"]//tr/td/select`)
	fieldsHouseholdDates = browser.XPath(`//table[@id="RendererSF1ResultSet"]//tr/td/span[@class="DateField input-group"]/input`)
	cellHouseholdName    = browser.XPath("./th")
	optionSelf           = browser.XPath(`.//select//option[@value="SL"]`)
	fieldsRowDates       = browser.XPath(`./td/span[@class="DateField input-group"]/input`)

	// workflow cancellation
	buttonCancelWorkflow = browser.XPath(`//div[@class="workflow-controls"]/button[@aria-label="Cancel the workflow"]`)
	buttonDialogYes      = browser.ID("YesButton")

	// universal data assessment
	buttonDefaultUniversal = browser.ID("B1000006792_Renderer")
	fieldsAssessmentDates  = browser.XPath(`//table[@class="FormPage"]//td[@class="FieldStyle"]/span[@class="DateField input-group"]/input`)
	fieldAssessmentDate    = browser.ID("1000006788_Renderer")
	dropdownDisabling      = browser.ID("1000006806_Renderer")
	dropdownCounty         = browser.ID("1000006849_Renderer")
	dropdownPriorLiving    = browser.ID("1000006811_Renderer")
	dropdownLengthOfStay   = browser.ID("1000006812_Renderer")
	fieldHomelessStart     = browser.ID("1000006795_Renderer")
	dropdownStreetFreq     = browser.ID("1000006807_Renderer")
	dropdownMonthsHomeless = browser.ID("1000006813_Renderer")

	// insurance status, part of the universal data form
	buttonDefaultInsurance = browser.ID("B1000006761_Renderer")
	dropdownInsurance      = browser.ID("1000006802_Renderer")

	// barrier assessment
	buttonDefaultBarrier = browser.ID("B1000006792_Renderer")
	fieldBarrierDate     = browser.ID("90688_Renderer")
	dropdownsBarrier     = browser.XPath(`//table[@id="RendererResultSet"]//tr/td/select[@class="form-control"]`)

	// domestic violence assessment
	buttonDefaultViolence = browser.ID("B48899_Renderer")
	fieldViolenceDate     = browser.ID("11807_Renderer")
	radiosViolence        = browser.XPath(`//span[@id="11888_Renderer"]//input[@type="radio"]`)

	// income assessment
	buttonDefaultIncome = browser.ID("B92169_Renderer")
	fieldIncomeDate     = browser.ID("92172_Renderer")
	dropdownIncome      = browser.ID("92173_Renderer")
	dropdownNonCash     = browser.ID("92174_Renderer")

	// current living situation assessment
	dropdownLivingSituation = browser.ID("107051_Renderer")

	// translation assistance assessment
	buttonDefaultTranslation = browser.ID("B107569_Renderer")
	dropdownTranslation      = browser.ID("107564_Renderer")

	// edit enrollment
	fieldsEngagementForm  = browser.XPath(`//table[@class="FormPage"]//td/span/input`)
	fieldsEngagementDates = browser.XPath(`//table[@id="RendererSF1ResultSet"]/tbody/tr/td/span/input`)
	dropdownRowRelation   = browser.XPath("./td/select")
	fieldsRowInputs       = browser.XPath("./td/span/input")
)

// option values shared by the intake forms
const (
	optionDataNotCollected = "99"
	optionNo               = "0"
	optionOrangeCounty     = "1"
	optionSeminoleCounty   = "2"
	optionNotForHabitation = "16"

	// a dropdown is untouched while its selected option reads "--SELECT--"
	emptyOptionMarker = "SELECT"
)
