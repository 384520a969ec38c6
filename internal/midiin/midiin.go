// Package midiin turns MIDI keyboard note-on events into quiz answers.
package midiin

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // rtmidi driver.
)

// Virtual and system ports that are never picked automatically.
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

// Listener forwards note-on keys from one input port.
type Listener struct {
	name string
	in   drivers.In
	stop func()
}

// Ports lists the available MIDI input port names.
func Ports() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// Open connects to the port whose name contains want (case-insensitive),
// or to the first non-virtual port when want is empty. onKey receives MIDI
// key numbers on the driver's goroutine.
func Open(want string, onKey func(key int), logf func(string, ...any)) (*Listener, error) {
	name, ok := PickPort(Ports(), want)
	if !ok {
		if want == "" {
			return nil, fmt.Errorf("no MIDI input found")
		}
		return nil, fmt.Errorf("MIDI input %q not found", want)
	}
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", name, err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if msg.GetNoteStart(&ch, &key, &vel) {
			onKey(int(key))
		}
	}, midi.HandleError(func(listenErr error) {
		if logf != nil {
			logf("midi: listener error on %s: %v\n", name, listenErr)
		}
	}))
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", name, err)
	}
	return &Listener{name: name, in: in, stop: stop}, nil
}

// Name returns the connected port name.
func (l *Listener) Name() string { return l.name }

// Close stops listening and releases the driver.
func (l *Listener) Close() error {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
	var err error
	if l.in != nil {
		err = l.in.Close()
		l.in = nil
	}
	midi.CloseDriver()
	return err
}

// PickPort chooses an input port name.
func PickPort(names []string, want string) (string, bool) {
	want = strings.TrimSpace(want)
	for _, name := range names {
		if want != "" && containsCI(name, want) {
			return name, true
		}
	}
	if want != "" {
		return "", false
	}
	for _, name := range names {
		if !isExcluded(name) {
			return name, true
		}
	}
	return "", false
}

func isExcluded(name string) bool {
	for _, pat := range excludedPatterns {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
