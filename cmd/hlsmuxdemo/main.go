/*
NAME
  hlsmuxdemo - drives every container muxer with synthetic packets.

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is a thin demonstration binary: it feeds a chosen
// codec's synthetic access units through a chosen container muxer and
// writes the resulting segments to a directory, so the wiring between
// a PacketSource, a Muxer and a SegmentReceiver can be exercised
// end-to-end without a real encoder upstream.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ausocean/hlsmux/container/audio"
	"github.com/ausocean/hlsmux/container/flac"
	"github.com/ausocean/hlsmux/container/fmp4"
	"github.com/ausocean/hlsmux/container/mts"
	"github.com/ausocean/hlsmux/container/ogg"
	"github.com/ausocean/hlsmux/container/packedaudio"
	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logPath      = "hlsmuxdemo.log"
	logMaxSize   = 10 // MB
	logMaxBackup = 3
	logMaxAge    = 7 // days
	logVerbosity = logging.Debug
	logSuppress  = false
)

func main() {
	container := flag.String("container", "fmp4", "container to drive: fmp4, mts, ogg-flac, ogg-opus, packedaudio, flac")
	codec := flag.String("codec", "aac", "codec to synthesise: aac, mp3, ac3, eac3, flac, opus, alac")
	out := flag.String("out", "out", "directory segments are written to")
	segments := flag.Int("segments", 3, "number of media segments to produce")
	rate := flag.Uint64("rate", 48000, "sample rate in Hz")
	channels := flag.Uint64("channels", 2, "channel count")
	withID3 := flag.Bool("id3", true, "carry a synthetic tag list in timed metadata (mts, fmp4, packedaudio)")
	flag.Parse()

	fileLog := &lumberjack.Logger{Filename: logPath, MaxSize: logMaxSize, MaxBackups: logMaxBackup, MaxAge: logMaxAge}
	l := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stdout), logSuppress)

	if err := run(l, *container, *codec, *out, *segments, uint32(*rate), uint32(*channels), *withID3); err != nil {
		l.Log(logging.Error, "hlsmuxdemo: failed", "error", err)
		os.Exit(1)
	}
}

func run(l logging.Logger, containerName, codecName, out string, segments int, rate, channels uint32, withID3 bool) error {
	codec, err := parseCodec(codecName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	dst := &fileReceiver{dir: out, log: l}

	m, err := newMuxer(containerName, codec, dst, l, withID3)
	if err != nil {
		return err
	}

	src := syntheticSource(codec, rate, channels)
	if err := m.Open(src); err != nil {
		return fmt.Errorf("opening muxer: %w", err)
	}

	if withID3 {
		tags := audio.NewTagList()
		tags.AddString("TIT2", "hlsmuxdemo synthetic stream")
		if err := m.SubmitTags(tags); err != nil {
			return fmt.Errorf("submitting tags: %w", err)
		}
	}

	const (
		frameLen       = 1024
		segmentLengthMS = 6000 // Matches every muxer's default GetSegmentInfo policy.
	)
	targetSamples := uint64(segmentLengthMS) * uint64(rate) / 1000
	packetsPerSegment := targetSamples/frameLen + 1 // +1 so accumulation crosses the target and actually closes.
	total := int(packetsPerSegment) * segments
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}

	var pts int64
	for i := 0; i < total; i++ {
		pkt := audio.Packet{
			Data:     payload,
			Duration: frameLen,
			PTS:      pts,
			Sync:     true,
		}
		if err := m.SubmitPacket(pkt); err != nil {
			return fmt.Errorf("submitting packet %d: %w", i, err)
		}
		pts += frameLen
	}
	if err := m.Flush(); err != nil {
		return fmt.Errorf("flushing: %w", err)
	}
	l.Log(logging.Info, "hlsmuxdemo: done", "segments_written", dst.count, "bytes_written", dst.bytes)
	return m.Close()
}

func parseCodec(name string) (audio.CodecTag, error) {
	switch name {
	case "aac":
		return audio.CodecAAC, nil
	case "mp3":
		return audio.CodecMP3, nil
	case "ac3":
		return audio.CodecAC3, nil
	case "eac3":
		return audio.CodecEAC3, nil
	case "flac":
		return audio.CodecFLAC, nil
	case "opus":
		return audio.CodecOpus, nil
	case "alac":
		return audio.CodecALAC, nil
	default:
		return audio.CodecUnknown, fmt.Errorf("unknown codec %q", name)
	}
}

// syntheticSource fabricates a plausible PacketSource for codec,
// including the decoder-specific init bytes most muxers require,
// since this demo has no real encoder upstream to supply them.
func syntheticSource(codec audio.CodecTag, rate, channels uint32) audio.PacketSource {
	layout := audio.LayoutStereo
	if channels == 1 {
		layout = audio.LayoutMono
	}
	src := audio.PacketSource{
		Codec:         codec,
		ChannelLayout: layout,
		SampleRate:    rate,
		FrameLen:      1024,
		SyncFlag:      true,
	}
	switch codec {
	case audio.CodecAAC:
		src.DSI = []byte{0x11, 0x90} // AAC-LC, 48kHz, stereo AudioSpecificConfig.
	case audio.CodecALAC:
		src.DSI = make([]byte, 24) // ALAC magic cookie, placeholder content.
	case audio.CodecFLAC:
		src.DSI = make([]byte, 34) // STREAMINFO, placeholder content.
	case audio.CodecOpus:
		src.DSI = ogg.BuildOpusHead(uint8(layout.Channels()), 0, rate, 0, 0)
	case audio.CodecAC3, audio.CodecEAC3:
		src.DSI = make([]byte, 3) // dac3/dec3 payload, placeholder content.
	}
	return src
}

func newMuxer(containerName string, codec audio.CodecTag, dst audio.SegmentReceiver, l logging.Logger, withID3 bool) (audio.Muxer, error) {
	switch containerName {
	case "fmp4":
		return fmp4.NewMuxer(dst, l, withID3), nil
	case "mts":
		return mts.NewMuxer(dst, l, withID3), nil
	case "ogg-flac":
		return ogg.NewFLACMuxer(dst, l)
	case "ogg-opus":
		return ogg.NewOpusMuxer(dst, l)
	case "packedaudio":
		return packedaudio.NewMuxer(dst, l), nil
	case "flac":
		return flac.NewMuxer(dst, l), nil
	default:
		return nil, fmt.Errorf("unknown container %q", containerName)
	}
}

// fileReceiver implements audio.SegmentReceiver, writing each segment
// to a numbered file under dir; the init segment (if any) is written
// first as "init" + extension.
type fileReceiver struct {
	dir   string
	log   logging.Logger
	ext   string
	n     int
	count int
	bytes int
}

func (f *fileReceiver) GetSegmentInfo(audio.SegmentSourceInfo) audio.SegmentParams {
	return audio.SegmentParams{SegmentLengthMS: 6000}
}

func (f *fileReceiver) Open(info audio.SegmentSourceInfo) error {
	f.ext = info.Extension
	return nil
}

func (f *fileReceiver) SubmitSegment(s audio.Segment) error {
	name := fmt.Sprintf("segment-%04d%s", f.n, f.ext)
	if s.Type == audio.SegmentInit {
		name = "init" + f.ext
	} else {
		f.n++
	}
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, s.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	f.count++
	f.bytes += len(s.Data)
	f.log.Log(logging.Debug, "hlsmuxdemo: wrote segment", "path", path, "bytes", len(s.Data))
	return nil
}

func (f *fileReceiver) SubmitTags(*audio.TagList) error { return nil }

func (f *fileReceiver) Flush() error { return nil }
