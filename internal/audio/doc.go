// Package audio reads and writes container-native tags for the audio formats
// shelfsort places into a library, and probes their playback duration.
//
// Open inspects the file signature once and returns an MP3 (ID3v2.4), MP4
// (iTunes ilst atoms) or FLAC (Vorbis comment and PICTURE blocks) container
// behind the Container interface. Anything else, WAV included, is reported as
// ErrUnsupported. Duration understands all four formats.
package audio
