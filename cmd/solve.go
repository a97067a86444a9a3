package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/slotplan/core/engine"
	"github.com/kilianp07/slotplan/pkg/export"
)

var solveOpts struct {
	input     string
	algorithm string
	rooms     string
	output    string
	format    string
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a planning input and print the assignment",
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&solveOpts.input, "input", "i", "", "input file (yaml or json)")
	f.StringVarP(&solveOpts.algorithm, "algorithm", "a", "", "solver strategy, overrides the input")
	f.StringVarP(&solveOpts.rooms, "rooms", "r", "", "room count or auto, overrides the input")
	f.StringVarP(&solveOpts.output, "output", "o", "", "output file, stdout when empty")
	f.StringVar(&solveOpts.format, "format", "json", "output format: json or csv")
	_ = solveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := engine.LoadInput(solveOpts.input)
	if err != nil {
		return printError(cmd.ErrOrStderr(), err)
	}
	if solveOpts.algorithm != "" {
		in.Algorithm = solveOpts.algorithm
	}
	if solveOpts.rooms != "" {
		rc, err := engine.ParseRoomCount(solveOpts.rooms)
		if err != nil {
			return printError(cmd.ErrOrStderr(), engine.Wrap(engine.ErrInvalidInput, err))
		}
		in.RoomCount = rc
	}

	svc, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := svc.Solve(ctx, in)
	if err != nil {
		return printError(cmd.ErrOrStderr(), err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if solveOpts.output != "" {
		f, err := os.Create(solveOpts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, solveOpts.format, res)
}

// printError writes the typed error document and returns err.
func printError(w io.Writer, err error) error {
	typed := engine.FromError(err)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if eerr := enc.Encode(typed); eerr != nil {
		return fmt.Errorf("%w (encode: %v)", err, eerr)
	}
	return typed
}
