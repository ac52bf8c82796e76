// Package source provides upstream producers of raw speech chunks for the
// player: a websocket TTS client, a file reader and a test tone.
//
// The websocket protocol is a single JSON SynthesisRequest from the client,
// answered by binary audio frames and a final "EOS" text frame. A text frame
// starting with "ERR:" aborts the stream.
package source
