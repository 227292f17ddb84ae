package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"voxdist/commands"
	"voxdist/config"
	"voxdist/contracts"
	"voxdist/planner"
	"voxdist/scan"
	"voxdist/tiff"
)

var (
	flagVerbose bool
	flagConfig  string
)

func newLogger() *charmlog.Logger {
	level := charmlog.InfoLevel
	if flagVerbose {
		level = charmlog.DebugLevel
	}
	return charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func main() {
	root := &cobra.Command{
		Use:          "voxdist",
		Short:        "Block-distributed processing of grayscale TIFF volumes",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")

	root.AddCommand(newInfoCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newCopyCmd())
	root.AddCommand(newPlanCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Probe a TIFF volume and print its geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := tiff.GetInfo(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("file:        %s\n", args[0])
			fmt.Printf("dimensions:  %v\n", info.Dims)
			fmt.Printf("data type:   %v (%d bytes per voxel)\n", info.DType, info.PixBytes)
			if sx, sy, err := tiff.PixelSize(args[0]); err == nil {
				fmt.Printf("pixel size:  %.4f x %.4f mm\n", sx, sy)
			}
			return nil
		},
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan DIR",
		Short: "Probe every TIFF volume in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			vols, err := scan.Volumes(args[0])
			if err != nil {
				return err
			}
			if len(vols) == 0 {
				logger.Warn("no TIFF volumes found", "dir", args[0])
				return nil
			}
			for _, v := range vols {
				info, err := tiff.GetInfo(v.Path)
				if err != nil {
					logger.Error("unusable volume", "file", v.Path, "reason", err)
					continue
				}
				fields := []any{"dims", info.Dims, "type", info.DType, "fileBytes", v.Size}
				if v.RawSidecar != "" {
					fields = append(fields, "sidecar", filepath.Base(v.RawSidecar))
				}
				logger.Info(v.Path, fields...)
			}
			return nil
		},
	}
}

// copyArgs builds the argument list of a src-to-dst pipeline step.
func copyArgs(src, dst string) ([]contracts.Arg, error) {
	info, err := tiff.GetInfo(src)
	if err != nil {
		return nil, err
	}
	return []contracts.Arg{
		{Name: "source", Path: src, Dims: info.Dims, DType: info.DType, PixBytes: info.PixBytes, Role: contracts.Input},
		{Name: "target", Path: dst, Dims: info.Dims, DType: info.DType, PixBytes: info.PixBytes, Role: contracts.Output},
	}, nil
}

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy SRC DST",
		Short: "Copy a TIFF volume block by block through the distributor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			logger := newLogger()
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			args, err := copyArgs(cmdArgs[0], cmdArgs[1])
			if err != nil {
				return err
			}

			dist := &planner.LocalDistributor{
				Budget:     cfg.MemoryBudgetBytes(),
				NumWorkers: cfg.Distribute.Workers,
				Store:      tiff.Storage{},
				Log:        logger,
			}

			start := time.Now()
			outputs, err := dist.Run(cmd.Context(), []planner.Step{{Cmd: commands.Copy(), Args: args}})
			if err != nil {
				return err
			}
			logger.Info("copy finished", "items", len(outputs), "elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func newPlanCmd() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "plan FILE",
		Short: "Plan a block decomposition of a TIFF volume and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			args, err := copyArgs(cmdArgs[0], cmdArgs[0]+".out.tif")
			if err != nil {
				return err
			}

			sched, err := planner.Plan(planner.Step{Cmd: commands.Copy(), Args: args},
				cfg.MemoryBudgetBytes(), cfg.Distribute.Workers)
			if err != nil {
				return err
			}

			fmt.Printf("blocks: %d (%dx%d), largest item %d bytes, imbalance %.2f\n",
				len(sched.Items), sched.N1, sched.N2,
				sched.Summary.MaxItemBytes, sched.Summary.Imbalance)
			for _, item := range sched.Items {
				b := item.Blocks[sched.RefIndex]
				fmt.Printf("  item %3d worker %2d  read %v+%v  write %v+%v\n",
					item.Index, item.Worker, b.ReadStart, b.ReadSize, b.WriteFilePos, b.WriteSize)
			}

			if reportPath == "" {
				reportPath = cfg.Distribute.ReportPath
			}
			if reportPath != "" {
				if err := planner.WriteReport([]*planner.Schedule{sched}, reportPath); err != nil {
					return err
				}
				fmt.Printf("report written to %s\n", reportPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "", "write a PDF plan report to this path")
	return cmd
}
