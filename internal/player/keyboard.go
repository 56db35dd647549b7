package player

import (
	"context"
	"errors"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"sfzplayer/internal/audio"
	"sfzplayer/internal/logging"
)

var (
	keyboardLogger = logging.GetLogger().WithPrefix("keyboard")
)

// Trigger starts playback of a decoded sample. Audio output lives outside
// this package.
type Trigger func(note, velocity uint8, buf *audio.Buffer)

// Keyboard routes note-on events to the current instrument's samples.
type Keyboard struct {
	loader  *Loader
	trigger Trigger
	current atomic.Pointer[Instrument]
}

// NewKeyboard creates a keyboard that plays through trigger.
func NewKeyboard(loader *Loader, trigger Trigger) *Keyboard {
	return &Keyboard{loader: loader, trigger: trigger}
}

// SetInstrument switches the instrument notes are played on.
func (k *Keyboard) SetInstrument(inst *Instrument) {
	k.current.Store(inst)
	if inst != nil {
		keyboardLogger.Info("Keyboard now playing %q (%d notes)", inst.Key, inst.Samples.Len())
	}
}

// Instrument returns the current instrument, or nil.
func (k *Keyboard) Instrument() *Instrument {
	return k.current.Load()
}

// NoteOn plays the sample mapped to note. Notes without a sample, or a
// keyboard without an instrument, are ignored.
func (k *Keyboard) NoteOn(ctx context.Context, note, velocity uint8) error {
	inst := k.current.Load()
	if inst == nil {
		keyboardLogger.Debug("Note %d ignored: no instrument loaded", note)
		return nil
	}

	buf, err := k.loader.Sample(ctx, inst, int(note))
	if errors.Is(err, ErrUnmapped) {
		keyboardLogger.Debug("Note %d has no sample", note)
		return nil
	}
	if err != nil {
		return err
	}

	keyboardLogger.Trace("Triggering note %d velocity %d (%v)", note, velocity, buf.Duration())
	k.trigger(note, velocity, buf)
	return nil
}

// Handle plays note-on messages and ignores everything else.
func (k *Keyboard) Handle(ctx context.Context, msg midi.Message) error {
	var ch, key, vel uint8
	if msg.GetNoteStart(&ch, &key, &vel) {
		keyboardLogger.Trace("Note start ch=%d key=%d vel=%d", ch, key, vel)
		return k.NoteOn(ctx, key, vel)
	}
	return nil
}

// Listen opens in if needed and plays incoming notes until stop is called.
func (k *Keyboard) Listen(ctx context.Context, in drivers.In) (stop func(), err error) {
	if !in.IsOpen() {
		if err := in.Open(); err != nil {
			keyboardLogger.Error("Failed to open MIDI port %q: %v", in.String(), err)
			return nil, err
		}
	}

	stop, err = midi.ListenTo(in, func(msg midi.Message, _ int32) {
		if err := k.Handle(ctx, msg); err != nil {
			keyboardLogger.Warn("Failed to play %s: %v", msg.String(), err)
		}
	}, midi.HandleError(func(listenErr error) {
		keyboardLogger.Warn("MIDI listener error on %q: %v", in.String(), listenErr)
	}))
	if err != nil {
		keyboardLogger.Error("Failed to start MIDI listener: %v", err)
		return nil, err
	}

	keyboardLogger.Info("Listening on MIDI input %q", in.String())
	return stop, nil
}
