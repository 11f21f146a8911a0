package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/HerbHall/netsense/internal/version"
)

const usage = `usage: netsense [command] [flags]

commands:
  serve      start the HTTP, channel and WebSocket server (default)
  query      run one query: wifi | network | detail | generation
  token      issue a bearer token for permission decisions
  version    print version information
`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		runServe(args)
	case "query":
		err = runQuery(args, os.Stdout)
	case "token":
		err = runToken(args, os.Stdout)
	case "version":
		fmt.Println(version.Info())
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}
