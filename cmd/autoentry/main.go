package main

import (
	"hmis-autoentry/cmd/autoentry/commands"
	"hmis-autoentry/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
