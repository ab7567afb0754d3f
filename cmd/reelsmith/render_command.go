package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/rendering"
)

// renderManifest describes a local one-shot render: captions and durations
// plus paths to the per-scene images and the optional narration track.
type renderManifest struct {
	Scenes []struct {
		Caption  string  `json:"caption"`
		Duration float64 `json:"duration"`
		Image    string  `json:"image"`
	} `json:"scenes"`
	Audio    string `json:"audio,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var manifestPath, outputPath string
	var keepWorkspace bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a video from a local manifest without the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(manifestPath) == "" {
				return errors.New("--manifest is required")
			}
			if strings.TrimSpace(outputPath) == "" {
				return errors.New("--output is required")
			}

			request, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}
			request.OutputPath = outputPath
			request.KeepWorkspace = keepWorkspace

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			runner, err := rendering.NewRunner(cfg, logger)
			if err != nil {
				return err
			}

			result, err := runner.Run(cmd.Context(), request)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rendered %s (%.1fs)\n", result.Path, result.Duration)
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			if result.BudgetMisses > 0 {
				fmt.Fprintf(out, "warning: %d frame(s) exceeded the size budget\n", result.BudgetMisses)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the render manifest JSON")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination video path")
	cmd.Flags().BoolVar(&keepWorkspace, "keep-workspace", false, "Keep intermediate files for debugging")
	return cmd
}

func loadManifest(path string) (pipeline.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("read manifest: %w", err)
	}
	var manifest renderManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return pipeline.Request{}, fmt.Errorf("parse manifest: %w", err)
	}
	if len(manifest.Scenes) == 0 {
		return pipeline.Request{}, errors.New("manifest has no scenes")
	}

	base := filepath.Dir(path)
	request := pipeline.Request{Subtitle: manifest.Subtitle}
	for i, scene := range manifest.Scenes {
		if strings.TrimSpace(scene.Image) == "" {
			return pipeline.Request{}, fmt.Errorf("scene %d has no image", i+1)
		}
		image, err := os.ReadFile(resolveManifestPath(base, scene.Image))
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("read scene %d image: %w", i+1, err)
		}
		request.Scenes = append(request.Scenes, pipeline.Scene{
			Caption:  scene.Caption,
			Duration: scene.Duration,
		})
		request.Images = append(request.Images, image)
	}
	if manifest.Audio != "" {
		audio, err := os.ReadFile(resolveManifestPath(base, manifest.Audio))
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("read audio: %w", err)
		}
		request.Audio = audio
	}
	return request, nil
}

// resolveManifestPath makes relative manifest entries resolve against the
// manifest's own directory.
func resolveManifestPath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
