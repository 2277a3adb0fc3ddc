package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/polysensus/chaintrap-arenastate/names"
	"github.com/polysensus/chaintrap-arenastate/tokenid"
)

const usage = `usage: tokenid <command> [args]

commands:
  encode <instance>   print the game token id for an instance number
  decode <token id>   print the instance number of a game token id (hex or decimal)
  names               print the event name registry, one "code name" per line
  code <name>         print the code for an event name
  name <code>         print the event name for a code
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if err := run(os.Stdout, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("bad arguments")

func run(w io.Writer, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "encode":
		if len(rest) != 1 {
			return errUsage
		}
		instance, err := strconv.ParseUint(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("instance must be a non-negative integer: %w", err)
		}
		token := tokenid.GameToken(instance)
		fmt.Fprintf(w, "%s\n%s\n", token.Hex(), token.String())

	case "decode":
		if len(rest) != 1 {
			return errUsage
		}
		token, err := tokenid.ParseTokenID(rest[0])
		if err != nil {
			return err
		}
		instance, err := tokenid.GameInstance(token)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, instance)

	case "names":
		for i, name := range names.Default.Names() {
			fmt.Fprintf(w, "%d %s\n", i, name)
		}

	case "code":
		if len(rest) != 1 {
			return errUsage
		}
		code, err := names.CodeOf(rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, int(code))

	case "name":
		if len(rest) != 1 {
			return errUsage
		}
		n, err := strconv.ParseUint(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("code must be a non-negative integer: %w", err)
		}
		name, err := names.Default.NameOfInt(n)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, name)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}
