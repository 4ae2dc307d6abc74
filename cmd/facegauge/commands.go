package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"facegauge/calibration"
	"facegauge/session"
	"facegauge/video"
)

var errUnknownCommand = errors.New("unknown command")

// controller is the part of session.Machine driven by user input.
type controller interface {
	BeginManual() error
	BeginAuto() error
	ToggleDetection() error
	ViewResults() (session.Results, error)
	Reset()
	Click(clientX, clientY float64, rect calibration.Rect, frameWidth, frameHeight int) error
	SetPrecision(level int) error
	SetDistortion(factor float64) error
	SetReferenceLength(length float64) error
}

// command is one parsed stdin line.
type command struct {
	name string
	args []float64
}

// parseCommand accepts "click <x> <y>", "precision <n>", "distortion <f>",
// "length <f>" and the argument-free actions calibrate, auto, toggle, view
// and reset.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{}, fmt.Errorf("%w: empty line", errUnknownCommand)
	}
	want := map[string]int{
		"click": 2, "precision": 1, "distortion": 1, "length": 1,
		"calibrate": 0, "auto": 0, "toggle": 0, "view": 0, "reset": 0,
	}
	n, ok := want[fields[0]]
	if !ok {
		return command{}, fmt.Errorf("%w: %q", errUnknownCommand, fields[0])
	}
	if len(fields)-1 != n {
		return command{}, fmt.Errorf("%s takes %d argument(s), got %d", fields[0], n, len(fields)-1)
	}
	cmd := command{name: fields[0]}
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return command{}, fmt.Errorf("%s: bad number %q", fields[0], f)
		}
		cmd.args = append(cmd.args, v)
	}
	if cmd.name == "precision" && cmd.args[0] != float64(int(cmd.args[0])) {
		return command{}, fmt.Errorf("precision must be a whole number, got %g", cmd.args[0])
	}
	return cmd, nil
}

// apply runs a parsed command. frameWidth and frameHeight are the size of
// the last rendered frame.
func apply(c controller, cmd command, rect calibration.Rect, frameWidth, frameHeight int) error {
	switch cmd.name {
	case "click":
		return c.Click(cmd.args[0], cmd.args[1], rect, frameWidth, frameHeight)
	case "precision":
		return c.SetPrecision(int(cmd.args[0]))
	case "distortion":
		return c.SetDistortion(cmd.args[0])
	case "length":
		return c.SetReferenceLength(cmd.args[0])
	case "calibrate":
		return c.BeginManual()
	case "auto":
		return c.BeginAuto()
	case "toggle":
		return c.ToggleDetection()
	case "view":
		_, err := c.ViewResults()
		return err
	case "reset":
		c.Reset()
		return nil
	}
	return fmt.Errorf("%w: %q", errUnknownCommand, cmd.name)
}

// handleKey maps a window key press to an action. It reports whether the
// key asks to quit.
func handleKey(c controller, key int) (quit bool, err error) {
	switch key {
	case 'q', video.KeyEscape:
		return true, nil
	case 'c':
		return false, c.BeginManual()
	case 'a':
		return false, c.BeginAuto()
	case video.KeySpace:
		return false, c.ToggleDetection()
	case 'v':
		_, err := c.ViewResults()
		return false, err
	case 'r':
		c.Reset()
	}
	return false, nil
}
