package main

import (
	// Embed the timezone database so BUSINESS_TIMEZONE resolves in scratch images.
	_ "time/tzdata"

	"github.com/mmdesignweb/crm-notifier/cmd"
)

func main() {
	cmd.Execute()
}
