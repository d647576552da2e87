// Package player spawns the external video-player process per spec §6:
// stdio connected to the null sink, reaped on exit, never blocking the
// rest of the core on anything but the child's own lifetime.
package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Launch spawns playerPath against episodePath, appending extraArgs in
// order (config defaults first, then the series' own overrides per
// spec §6's "player_path <episode_path> <config.player_args...>
// <series.player_args...>" contract). It blocks until the player exits.
// A non-zero exit is reported in the returned error but is never fatal
// by itself — the caller's time-gate decides whether progress counts.
func Launch(ctx context.Context, playerPath, episodePath string, extraArgs ...string) error {
	args := append([]string{episodePath}, extraArgs...)
	cmd := exec.CommandContext(ctx, playerPath, args...)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open null sink: %w", err)
	}
	defer devNull.Close()

	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player exited: %w", err)
	}
	return nil
}
