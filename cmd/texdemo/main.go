// Command texdemo exercises the texture residency core on a real backend.
//
// It loads the image files given as arguments (or synthesizes a
// checkerboard), builds a material per image plus a glyph material, then
// runs frames requesting descriptor sets in every clamp mode and prints
// the Manager statistics.
//
//	texdemo -backend wgpu -frames 8 wall.png floor.bmp
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/texres"
	"github.com/gogpu/texres/backend"
	_ "github.com/gogpu/texres/backend/vulkan"
	_ "github.com/gogpu/texres/backend/wgpu"
	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/palette"
	"github.com/gogpu/texres/source"
)

func main() {
	var (
		backendName = flag.String("backend", "", "backend to use (empty selects the best available)")
		frames      = flag.Int("frames", 4, "number of frames to run")
		mipmaps     = flag.Bool("mipmaps", true, "generate mip chains")
		glyphs      = flag.String("glyphs", "texres", "characters to upload as glyph textures")
		verbose     = flag.Bool("v", false, "log debug output")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	texres.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	dev, name, err := openDevice(*backendName)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Destroy()
	log.Printf("Using %s backend (available: %v)", name, backend.Available())

	pacer, err := texres.NewFencePacer(dev, texres.DefaultFramesInFlight)
	if err != nil {
		log.Fatalf("Failed to create frame pacer: %v", err)
	}
	defer pacer.Destroy()

	m, err := texres.NewManager(dev, pacer, palette.NewTable(), texres.WithMipmaps(*mipmaps))
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	mats, err := buildMaterials(m, flag.Args(), *glyphs)
	if err != nil {
		log.Fatalf("Failed to build materials: %v", err)
	}

	for frame := 0; frame < *frames; frame++ {
		if err := runFrame(mats, frame); err != nil {
			log.Fatalf("Frame %d: %v", frame, err)
		}
		// Draws sampling the sets would be submitted after this.
		if err := m.SubmitTransfers(); err != nil {
			log.Fatalf("SubmitTransfers: %v", err)
		}
		// Drop one material halfway to exercise deferred deletion.
		if frame == *frames/2 && len(mats) > 1 {
			last := mats[len(mats)-1]
			mats = mats[:len(mats)-1]
			if err := m.DestroyMaterial(last.Handle()); err != nil {
				log.Fatalf("DestroyMaterial: %v", err)
			}
		}
		if err := m.EndFrame(); err != nil {
			log.Fatalf("EndFrame: %v", err)
		}
	}

	if err := m.WaitForCommands(); err != nil {
		log.Fatalf("WaitForCommands: %v", err)
	}
	fmt.Println(m.Stats())
	if err := m.Close(); err != nil {
		log.Fatalf("Close: %v", err)
	}
}

func openDevice(name string) (gpucore.Device, string, error) {
	if name == "" {
		return backend.Default()
	}
	dev, err := backend.Open(name)
	return dev, name, err
}

func buildMaterials(m *texres.Manager, files []string, glyphs string) ([]*texres.Material, error) {
	var sources []texres.PixelSource
	for _, path := range files {
		img, err := source.Load(path, nil)
		if err != nil {
			return nil, err
		}
		sources = append(sources, img)
	}
	if len(sources) == 0 {
		sources = append(sources, source.Checker(256, 256, 32, color.White, color.RGBA{R: 200, A: 255}))
	}

	var mats []*texres.Material
	for _, src := range sources {
		mat, err := m.NewMaterial(texres.MaterialDesc{
			Layers: []texres.MaterialLayer{{Source: src}},
		})
		if err != nil {
			return nil, err
		}
		mats = append(mats, mat)
	}

	if glyphs == "" {
		return mats, nil
	}
	face, err := source.NewFace(nil, 32)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	layers := make([]texres.MaterialLayer, 0, len(glyphs))
	for _, r := range glyphs {
		g, err := source.RasterizeGlyph(face, r)
		if err != nil {
			return nil, err
		}
		layers = append(layers, texres.MaterialLayer{Source: g, Flags: texres.FlagIndexed})
	}
	mat, err := m.NewMaterial(texres.MaterialDesc{Layers: layers, NoFilter: true})
	if err != nil {
		return nil, err
	}
	return append(mats, mat), nil
}

func runFrame(mats []*texres.Material, frame int) error {
	clamp := texres.ClampMode(frame % int(texres.ClampCamTex+1))
	for _, mat := range mats {
		if _, err := mat.GetDescriptorSet(texres.RenderState{ClampMode: clamp}); err != nil {
			return fmt.Errorf("material %v clamp %s: %w", mat.Handle(), clamp, err)
		}
	}
	return nil
}
