// Package audio verifies microphone access before a session connects. The
// probe captures a short burst and throws it away; its only job is to fail
// fast when the capture device is missing or busy.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const probeDuration = 300 * time.Millisecond

// FFMPEGProber checks capture access by running a brief ffmpeg recording to
// the null muxer.
type FFMPEGProber struct {
	command     string
	inputFormat string
	inputDevice string
}

func NewFFMPEGProber(command string) *FFMPEGProber {
	if strings.TrimSpace(command) == "" {
		command = "ffmpeg"
	}
	return &FFMPEGProber{
		command:     command,
		inputFormat: "pulse",
		inputDevice: "default",
	}
}

func (p *FFMPEGProber) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-f", p.inputFormat,
		"-i", p.inputDevice,
		"-t", fmt.Sprintf("%.2f", probeDuration.Seconds()),
		"-f", "null",
		"-",
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return fmt.Errorf("microphone probe failed: %w", err)
		}
		return fmt.Errorf("microphone probe failed: %w: %s", err, detail)
	}
	return nil
}

// StaticProber reports a fixed probe outcome. Used by the scripted transport
// mode and by tests.
type StaticProber struct {
	Err error
}

func (p StaticProber) Probe(context.Context) error {
	if p.Err != nil {
		return p.Err
	}
	return nil
}

// ErrNoDevice is the canonical probe failure for a missing capture device.
var ErrNoDevice = errors.New("no capture device available")
