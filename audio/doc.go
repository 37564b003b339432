// Package audio splits long audio sources into bounded-duration segments
// for recognition and removes the scratch files afterwards.
//
// Decoding is delegated to a Codec; FFmpeg implements it by shelling out to
// ffprobe and ffmpeg through the process package.
package audio
