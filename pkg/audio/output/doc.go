// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-based Output interface and its backends
// Package output provides realtime audio playback backends.
//
// Every backend pulls samples from a RenderFunc on the device's own audio
// thread, so the rest of the system only talks to the realtime context by
// whatever the render function reads.
//
// Supported backends: malgo (miniaudio, default), oto, and a clock-paced
// null device for headless runs and tests.
//
// Example:
//
//	out, err := output.New("malgo")
//	err = out.Open(audio.DefaultFormat(), func(buf []int16) { proc.Process(buf) })
//	defer out.Close()
package output
