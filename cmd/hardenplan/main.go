// Command hardenplan enforces security profile remediation rules on
// installation plans.
package main

import "github.com/oscap-tools/hardenplan/internal/cli"

func main() {
	cli.Execute()
}
