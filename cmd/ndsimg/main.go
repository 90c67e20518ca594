package main

import (
	"fmt"
	"log"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rstms/nds/image"
	"github.com/rstms/nds/nitrofs"
)

func buildOptions() *nitrofs.BuildOptions {
	align := viper.GetInt("align")
	if align <= 0 {
		return nil
	}
	return &nitrofs.BuildOptions{Align: align, Fill: 0xFF}
}

var rootCmd = &cobra.Command{
	Use:           "ndsimg",
	Short:         "extract, inspect, and rebuild NDS ROM and NARC images",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var infoCmd = &cobra.Command{
	Use:   "info <image>",
	Short: "show container information",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := image.OpenImage(args[0])
		if err != nil {
			return err
		}
		defer img.Close()
		info := img.Info()
		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-12s %v\n", k, info[k])
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <image>",
	Short: "list the virtual filesystem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := image.OpenImage(args[0])
		if err != nil {
			return err
		}
		defer img.Close()
		records, err := img.ScanFiles()
		if err != nil {
			return err
		}
		for _, r := range records {
			if r.Dir {
				fmt.Printf("%24s %s/\n", "", r.Name)
			} else {
				fmt.Printf("%8d %8d bytes  %s\n", r.FileID, r.Size, r.Name)
			}
		}
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <image> <dest>",
	Short: "extract a container to a directory tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !image.IsFile(args[0]) {
			return fmt.Errorf("not a file: %s", args[0])
		}
		img, err := image.OpenImage(args[0])
		if err != nil {
			return err
		}
		defer img.Close()
		return img.Extract(args[1], &image.ExtractOptions{
			Workers: viper.GetInt("workers"),
		})
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <srcdir> <out>",
	Short: "build an image from an extracted directory tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fsys := afero.NewOsFs()
		if viper.GetBool("narc") {
			return image.BuildNarc(fsys, args[0], args[1], buildOptions())
		}
		return image.BuildRom(fsys, args[0], args[1], buildOptions())
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <image> <out>",
	Short: "extract and rebuild an image in one step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return image.RebuildImage(args[1], args[0], buildOptions())
	},
}

func init() {
	rootCmd.PersistentFlags().Int("workers", 0, "extraction worker count, 0 for one per CPU")
	rootCmd.PersistentFlags().Int("align", 0, "file data alignment, 0 for the format default")
	buildCmd.Flags().Bool("narc", false, "build a NARC archive instead of a ROM")
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("align", rootCmd.PersistentFlags().Lookup("align"))
	viper.BindPFlag("narc", buildCmd.Flags().Lookup("narc"))
	rootCmd.AddCommand(infoCmd, listCmd, extractCmd, buildCmd, rebuildCmd)
}

func main() {
	log.SetPrefix("[ndsimg] ")
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
