package graphics

import (
	"galaxy-generator/internal/config"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Run opens the window and runs the main loop until the window is closed. Each frame it
// calls update (input, camera), then clears the screen and calls draw. unload, if set,
// runs after the loop while the GL context is still alive.
// ESC is reserved for the terminal; close via the window button.
func Run(cfg config.WindowConfig, update, draw, unload func()) {
	width, height := cfg.Width, cfg.Height
	if cfg.Fullscreen {
		rl.SetConfigFlags(rl.FlagFullscreenMode | rl.FlagMsaa4xHint)
		width, height = int32(rl.GetMonitorWidth(0)), int32(rl.GetMonitorHeight(0))
	} else {
		rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	}
	rl.InitWindow(width, height, cfg.Title)
	defer rl.CloseWindow()
	if unload != nil {
		defer unload()
	}

	rl.SetExitKey(rl.KeyNull)
	if cfg.TargetFPS > 0 {
		rl.SetTargetFPS(cfg.TargetFPS)
	}

	for !rl.WindowShouldClose() {
		update()

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		draw()
		rl.EndDrawing()
	}
}
