/*
Copyright © 2026 JACOB ARTHURS
*/
package main

import "github.com/jacobarthurs/bbhealth/cmd"

func main() {
	cmd.Execute()
}
