// Package playback owns the realtime side of speech playback.
//
// An Engine opens one output device and feeds it from a Processor. The two
// only exchange messages: sample blocks and offset requests go in through
// the processor mailbox, offset answers and the stop event come back out
// and are picked up by a pump goroutine.
//
// Interruption is cooperative. Interrupt marks the track that was written
// last, and from then on every block enqueued for it is dropped. The
// processor stops emitting at the next render quantum.
//
// Example:
//
//	engine := playback.NewEngine(playback.Config{
//		OnEnded: func() { log.Printf("done") },
//	})
//	if err := engine.Connect(ctx); err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	engine.Enqueue(samples, playback.DefaultTrackID)
//	off, err := engine.Interrupt(ctx)
package playback
