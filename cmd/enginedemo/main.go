// Command enginedemo renders a spinning mesh with a debug overlay on the
// headless device and saves the last frame as a PNG.
package main

import (
	"context"
	"flag"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/app"
	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/backend/headless"
	"github.com/gogpu/engine/frame"
	"github.com/gogpu/engine/gfx"
	"github.com/gogpu/engine/input"
	"github.com/gogpu/engine/mathx"
	"github.com/gogpu/engine/mesh"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

const cubeOBJ = `o cube
v -0.5 -0.5  0.5
v  0.5 -0.5  0.5
v  0.5  0.5  0.5
v -0.5  0.5  0.5
v -0.5 -0.5 -0.5
v  0.5 -0.5 -0.5
v  0.5  0.5 -0.5
v -0.5  0.5 -0.5
f 1 2 3 4
f 6 5 8 7
f 5 1 4 8
f 2 6 7 3
f 4 3 7 8
f 5 6 2 1
`

const flagPause input.Flags = 1 << 0

func main() {
	var (
		width   = flag.Int("width", 640, "framebuffer width")
		height  = flag.Int("height", 480, "framebuffer height")
		frames  = flag.Uint64("frames", 120, "frames to render, 0 to run until interrupted")
		fps     = flag.Float64("fps", app.DefaultFPS, "frame rate cap, 0 for none")
		meshArg = flag.String("mesh", "", "OBJ file to render (.obj, .obj.zst, .obj.lz4); a cube by default")
		output  = flag.String("output", "enginedemo.png", "PNG file for the last frame, empty to skip")
		overlay = flag.Bool("hud", true, "draw the debug overlay")
		mapped  = flag.Bool("mapped", false, "allocate frame memory outside the Go heap")
		verbose = flag.Bool("v", false, "log debug messages")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	engine.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var last *image.RGBA
	dev := headless.New(
		headless.WithSize(*width, *height),
		headless.WithPresentHook(func(_ uint64, fb *image.RGBA) {
			if *output == "" {
				return
			}
			if last == nil {
				last = image.NewRGBA(fb.Rect)
			}
			copy(last.Pix, fb.Pix)
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []app.Option{
		app.WithFPS(*fps),
		app.WithMaxFrames(*frames),
		app.WithClearColor(gputypes.Color{R: 0.1, G: 0.12, B: 0.18, A: 1}),
	}
	if *mapped {
		opts = append(opts, app.WithFrameOptions(frame.WithMappedMemory()))
	}
	if *overlay {
		opts = append(opts, app.WithHUD())
	}

	d := &demo{path: *meshArg}
	win := app.NewHeadlessWindow(*width, *height, -1)
	if err := app.Run(ctx, win, dev, d, opts...); err != nil {
		log.Fatalf("enginedemo: %v", err)
	}

	if *output != "" && last != nil {
		if err := savePNG(*output, last); err != nil {
			log.Fatalf("enginedemo: %v", err)
		}
		log.Printf("last frame saved to %s (%dx%d)", *output, *width, *height)
	}
}

// demo spins one mesh in front of the camera.
type demo struct {
	path  string
	mesh  *mesh.Mesh
	res   mesh.Resources
	angle float32
}

func (d *demo) Load(ctx context.Context, a *app.App) error {
	a.Input.BindKey(gpucontext.KeySpace, flagPause)
	if d.path == "" {
		m, err := mesh.ParseOBJ(strings.NewReader(cubeOBJ))
		if err != nil {
			return err
		}
		d.mesh = m
		return nil
	}
	if err := a.Assets.Preload(ctx, d.path); err != nil {
		return err
	}
	m, err := a.Assets.Mesh(d.path)
	if err != nil {
		return err
	}
	d.mesh = m
	return nil
}

func (d *demo) Update(f *app.Frame) error {
	if f.Input.Down.Has(flagPause) {
		return nil
	}
	d.angle += float32(f.Delta.Seconds())
	if d.angle > 2*math.Pi {
		d.angle -= 2 * math.Pi
	}
	return nil
}

func (d *demo) Render(f *app.Frame) error {
	if !d.res.VertexArray.IsValid() {
		res, err := d.mesh.Upload(f.Buffer, &f.App().Handles)
		if err != nil {
			return err
		}
		d.res = res
	}
	shader, err := f.MeshShader()
	if err != nil {
		return err
	}

	size := d.mesh.Bounds.Size()
	radius := max(size.X, size.Y, size.Z)
	if radius == 0 {
		radius = 1
	}
	center := d.mesh.Bounds.Center()

	aspect := float32(f.Width) / float32(max(f.Height, 1))
	proj := mathx.Perspective(math.Pi/4, aspect, 0.1, 100)
	view := mathx.LookAt(mathx.V3(0, radius*0.8, radius*2), mathx.Vec3{}, mathx.V3(0, 1, 0))
	spin := mathx.AxisAngle(mathx.V3(0, 1, 0), d.angle)
	model := mathx.TRS(mathx.Vec3{}, spin, mathx.V3(1, 1, 1)).Mul(mathx.Translate(center.Neg()))
	mvp := proj.Mul(view).Mul(model)

	if _, err := d.res.Draw(f.Buffer, gfx.OpaqueKey(0, 0, 0), shader, backend.InvalidHandle, gfx.Uniforms(mvp, mathx.V4(0.9, 0.6, 0.3, 1))); err != nil {
		return err
	}
	if f.HUD != nil {
		f.HUD.Printf("%s  %d vertices  %d triangles", d.mesh.Name, len(d.mesh.Vertices), len(d.mesh.Indices)/3)
	}
	return nil
}

func (d *demo) Unload(f *app.Frame) error {
	if d.res.VertexArray.IsValid() {
		return d.res.Release(f.Buffer)
	}
	return nil
}

func savePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}
