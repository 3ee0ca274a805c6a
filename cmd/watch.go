package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/logging"
	"github.com/user/sastbridge/pkg/pipeline"
	"github.com/user/sastbridge/pkg/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan the project whenever its files change",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(DebugMode)
		if err != nil {
			return err
		}
		defer log.Sync()

		cfg, err := config.Load(scanFlags.configPath, scanOverrides(cmd))
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		project, err := absDir(scanFlags.input)
		if err != nil {
			return err
		}
		outDir, err := filepath.Abs(scanFlags.output)
		if err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("watch init failed: %w", err)
		}
		defer watcher.Close()

		if err := addWatchRecursive(watcher, project, outDir); err != nil {
			return fmt.Errorf("watch failed: %w", err)
		}

		p := pipeline.New(cfg, log)
		runOnce := func() {
			summary, err := p.Run(cmd.Context(), project, outDir)
			if err != nil {
				log.Errorw("scan failed", "error", err)
				return
			}
			fmt.Println(ui.Summary(summary.Findings, summary.OutputDir))
		}

		fmt.Println(ui.Banner(project))
		runOnce()

		var timer *time.Timer
		debounce := 300 * time.Millisecond
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if skipWatchPath(ev.Name, outDir) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, runOnce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Warnw("watch error", "error", err)
			}
		}
	},
}

// skipWatchPath filters events from the output directory and hidden
// trees so report writes never retrigger a scan.
func skipWatchPath(path, outDir string) bool {
	if strings.HasPrefix(path, outDir+string(filepath.Separator)) || path == outDir {
		return true
	}
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func addWatchRecursive(w *fsnotify.Watcher, root, outDir string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if skipWatchPath(path, outDir) && path != root {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}

func init() {
	watchCmd.Flags().AddFlagSet(scanCmd.Flags())
	rootCmd.AddCommand(watchCmd)
}
