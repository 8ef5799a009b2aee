package hmis

import (
	"context"
	"fmt"
	"strings"
)

// the universal data assessment and the insurance status section share one form, the form is
// saved at the end of the insurance status stage
func (d *Driver) universalData(ctx context.Context, serviceDate string) error {
	err := d.defaultFromLast(ctx, buttonDefaultUniversal, "universal data assessment")
	if err != nil {
		return err
	}
	err = d.ready(ctx, "universal data assessment")
	if err != nil {
		return err
	}
	_, err = d.wait.Elements(ctx, d.session, fieldsAssessmentDates)
	if err != nil {
		return err
	}

	err = d.fillSelector(ctx, fieldAssessmentDate, serviceDate)
	if err != nil {
		return fmt.Errorf("assessment date: %w", err)
	}

	err = d.chooseIfEmpty(ctx, dropdownDisabling, optionNo)
	if err == nil {
		err = d.chooseIfEmpty(ctx, dropdownCounty, d.countyOption())
	}
	if err == nil {
		err = d.chooseIfEmpty(ctx, dropdownPriorLiving, optionNotForHabitation)
	}
	if err == nil {
		err = d.chooseIfEmpty(ctx, dropdownLengthOfStay, optionDataNotCollected)
	}
	if err == nil {
		err = d.homelessStartDate(ctx, serviceDate)
	}
	if err == nil {
		err = d.chooseIfEmpty(ctx, dropdownStreetFreq, optionDataNotCollected)
	}
	if err == nil {
		err = d.chooseIfEmpty(ctx, dropdownMonthsHomeless, optionDataNotCollected)
	}
	return err
}

// homelessStartDate rewrites the approximate date homelessness started when it holds the service
// date, which is what the form shows when it has never been answered.
func (d *Driver) homelessStartDate(ctx context.Context, serviceDate string) error {
	field, err := d.wait.Element(ctx, d.session, fieldHomelessStart)
	if err != nil {
		return fmt.Errorf("homeless start date: %w", err)
	}
	value, err := field.Value(ctx)
	if err != nil {
		return err
	}
	value = strings.ReplaceAll(value, "/", "")
	if !strings.Contains(value, serviceDate) {
		return nil
	}
	return d.fill(ctx, field, serviceDate)
}

func (d *Driver) insuranceStatus(ctx context.Context, _ string) error {
	err := d.defaultFromLast(ctx, buttonDefaultInsurance, "universal data assessment")
	if err != nil {
		return err
	}
	err = d.chooseIfEmpty(ctx, dropdownInsurance, optionDataNotCollected)
	if err != nil {
		return fmt.Errorf("health insurance: %w", err)
	}
	return d.click(ctx, d.wait, buttonSave)
}

func (d *Driver) barrier(ctx context.Context, _ string) error {
	err := d.ready(ctx, "barrier assessment")
	if err != nil {
		return err
	}
	_, err = d.wait.Element(ctx, d.session, fieldBarrierDate)
	if err != nil {
		return err
	}

	// the default control is rendered once per barrier group when a previous assessment
	// exists, a single instance belongs to the page chrome
	defaults, err := d.session.FindAll(ctx, buttonDefaultBarrier)
	if err != nil {
		return err
	}
	assessed := len(defaults) > 1
	if assessed {
		err = defaults[0].Click(ctx)
		if err != nil {
			return err
		}
		err = d.ready(ctx, "barrier assessment")
		if err != nil {
			return err
		}
	}

	dropdowns, err := d.session.FindAll(ctx, dropdownsBarrier)
	if err != nil {
		return err
	}
	// every fourth dropdown is a "barrier present?" field
	for i := 0; i < len(dropdowns); i += 4 {
		empty, err := dropdownEmpty(ctx, dropdowns[i])
		if err != nil {
			return fmt.Errorf("barrier %d: %w", i/4, err)
		}
		if !empty {
			continue
		}
		err = d.choose(ctx, dropdowns[i], optionDataNotCollected)
		if err != nil {
			return fmt.Errorf("barrier %d: %w", i/4, err)
		}
	}

	err = d.click(ctx, d.wait, buttonSaveAndClose)
	if err != nil {
		return err
	}
	if !assessed {
		return nil
	}

	// a previous assessment adds a confirmation page with a second save and close
	err = d.ready(ctx, "barrier assessment")
	if err != nil {
		return err
	}
	again, err := d.session.FindAll(ctx, buttonSaveAndClose)
	if err != nil {
		return err
	}
	if len(again) > 0 {
		return again[0].Click(ctx)
	}
	return nil
}

func (d *Driver) domesticViolence(ctx context.Context, _ string) error {
	err := d.defaultFromLast(ctx, buttonDefaultViolence, "domestic violence assessment")
	if err != nil {
		return err
	}
	_, err = d.wait.Element(ctx, d.session, fieldViolenceDate)
	if err != nil {
		return err
	}

	radios, err := d.session.FindAll(ctx, radiosViolence)
	if err != nil {
		return err
	}
	answered := false
	for _, radio := range radios {
		checked, err := radio.Checked(ctx)
		if err != nil {
			return err
		}
		answered = answered || checked
	}
	if !answered {
		// the fifth choice is "data not collected"
		if len(radios) < 5 {
			return fmt.Errorf("survivor of domestic violence has %d choices, expected 5", len(radios))
		}
		err = radios[4].Click(ctx)
		if err != nil {
			return err
		}
		err = d.wait.Pause(ctx)
		if err != nil {
			return err
		}
	}

	return d.click(ctx, d.wait, buttonSave)
}

func (d *Driver) income(ctx context.Context, _ string) error {
	err := d.defaultFromLast(ctx, buttonDefaultIncome, "income assessment")
	if err != nil {
		return err
	}
	_, err = d.wait.Element(ctx, d.session, fieldIncomeDate)
	if err != nil {
		return err
	}
	err = d.chooseIfEmpty(ctx, dropdownIncome, optionDataNotCollected)
	if err == nil {
		err = d.chooseIfEmpty(ctx, dropdownNonCash, optionDataNotCollected)
	}
	if err != nil {
		return err
	}
	return d.click(ctx, d.wait, buttonSave)
}

// the current living situation is recorded as of the service date, so it is always overwritten
func (d *Driver) currentLivingSituation(ctx context.Context, _ string) error {
	err := d.ready(ctx, "current living situation assessment")
	if err != nil {
		return err
	}
	dropdown, err := d.wait.Element(ctx, d.session, dropdownLivingSituation)
	if err != nil {
		return err
	}
	err = d.choose(ctx, dropdown, optionNotForHabitation)
	if err != nil {
		return err
	}
	return d.click(ctx, d.wait, buttonSave)
}

func (d *Driver) translationAssistance(ctx context.Context, _ string) error {
	err := d.defaultFromLast(ctx, buttonDefaultTranslation, "translation assistance assessment")
	if err != nil {
		return err
	}
	err = d.chooseIfEmpty(ctx, dropdownTranslation, optionDataNotCollected)
	if err != nil {
		return err
	}
	return d.click(ctx, d.wait, buttonSave)
}
