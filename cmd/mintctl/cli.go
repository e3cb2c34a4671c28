package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "hash":
		return runHash(args[2:])
	case "sign":
		return runSign(args[2:])
	case "verify":
		return runVerify(args[2:])
	case "slot":
		return runSlot(args[2:])
	case "keygen":
		return runKeygen(args[2:])
	case "audit":
		return runAudit(args[2:])
	case "keys":
		if len(args) >= 3 {
			switch args[2] {
			case "put":
				return runKeysPut(args[3:])
			case "delete":
				return runKeysDelete(args[3:])
			}
		}
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "mintctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s hash --requester <address> --slot <n> --resource <address> [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s sign --requester <address> --slot <n> --resource <address> --key-hex <hex> [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify --requester <address> --slot <n> --resource <address> --hash <hex> --signature <hex> --signer <address>\n", name)
	fmt.Fprintf(os.Stderr, "  %s slot --rpc <url> --resource <address> [--method <signature>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s keygen [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s audit --requester <address> [--limit <n>] [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s keys put --backend <vault|awskms|gcpkms> --kid <kid> --key-hex <hex>\n", name)
	fmt.Fprintf(os.Stderr, "  %s keys delete --backend <vault|awskms|gcpkms> --kid <kid>\n", name)
}
