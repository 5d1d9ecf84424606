package main

import "github.com/smallbiznis/clinicbill/cmd/clinicctl/cmd"

func main() {
	cmd.Execute()
}
