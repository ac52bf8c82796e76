// Package ttsbuffer plays synthesized speech as it streams in.
//
// A Buffer receives raw chunks from a producer in whatever sizes the
// network delivers them. Nothing is played until 64000 bytes have piled up,
// after which every chunk is converted and queued as soon as it arrives.
// When the producer is done, FlushBufferedData plays the remainder.
//
// When an utterance drains, or Reset is called, the buffer silences the
// output, reports OnAudioEnded and opens a fresh playback session so the
// next utterance can start right away. Interrupt is the exception: chunks
// still arriving for the interrupted utterance are dropped until Reset.
//
// Basic usage:
//
//	buf := ttsbuffer.New(ttsbuffer.Config{
//		OnAudioEnded: func() { close(done) },
//		OnAudioData:  func(f visualize.Frame) { draw(f.Levels()) },
//	})
//	if err := buf.ConnectAudioContext(ctx); err != nil {
//		return err
//	}
//	for chunk := range chunks {
//		if err := buf.AddChunk(chunk); err != nil {
//			return err
//		}
//	}
//	return buf.FlushBufferedData()
package ttsbuffer
