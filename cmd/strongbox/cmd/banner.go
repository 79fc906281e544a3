package cmd

import (
	"fmt"
)

// Version is set at build time via ldflags.
var Version = "dev"

const banner = `
  _____  _                              _
 / ____|| |                            | |
| (___  | |_  _ __   ___   _ __   __ _ | |__    ___  __  __
 \___ \ | __|| '__| / _ \ | '_ \  / _` + "`" + ` || '_ \  / _ \ \ \/ /
 ____) || |_ | |   | (_) || | | || (_| || |_) || (_) | >  <
|_____/  \__||_|    \___/ |_| |_| \__, ||_.__/  \___/ /_/\_\
                                   __/ |
                                  |___/
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Encrypted Password Vault - Version %s\x1b[0m\n\n", Version)
}
