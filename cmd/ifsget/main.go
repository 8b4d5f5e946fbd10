package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ifs-get/ifsget"
	"ifs-get/ifsget/config"
	"ifs-get/ifsget/logger"
	"ifs-get/ifsget/store"
)

var (
	cfg         *config.Config
	versionFlag uint64
	outputFlag  string
	noProgress  bool
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	rootCmd := &cobra.Command{
		Use:   "ifsget",
		Short: "A CLI tool for publishing and downloading versioned IFS images",
	}

	// versions command
	versionsCmd := &cobra.Command{
		Use:   "versions <COMPONENT>",
		Short: "List stored versions of a component",
		Args:  cobra.ExactArgs(1),
		Run:   runVersions,
	}

	// get command
	getCmd := &cobra.Command{
		Use:   "get <COMPONENT>...",
		Short: "Download the latest (or a pinned) IFS image of one or more components",
		Args:  cobra.MinimumNArgs(1),
		Run:   runGet,
	}
	getCmd.Flags().Uint64Var(&versionFlag, "version", 0, "Pin a specific version instead of the latest")
	getCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (single component only)")
	getCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bar (progress is enabled by default)")

	// publish command
	publishCmd := &cobra.Command{
		Use:   "publish <COMPONENT> <FILE>",
		Short: "Publish a new IFS image version for a component",
		Args:  cobra.ExactArgs(2),
		Run:   runPublish,
	}
	publishCmd.Flags().Uint64Var(&versionFlag, "version", 0, "Version to publish as")
	publishCmd.MarkFlagRequired("version")

	rootCmd.AddCommand(versionsCmd, getCmd, publishCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(ctx context.Context) ifsget.ContentStore {
	st, err := store.FromConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return st
}

func runVersions(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	id := ifsget.ComponentID(args[0])

	st := openStore(ctx)
	versions, err := st.ListVersions(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(versions) == 0 {
		fmt.Fprintf(os.Stderr, "No versions stored for %s\n", id)
		os.Exit(1)
	}

	fmt.Printf("Versions of %s:\n", id)
	for _, v := range versions {
		fmt.Println(uint64(v))
	}
}

func runGet(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	if outputFlag != "" && len(args) > 1 {
		fmt.Fprintln(os.Stderr, "Error: --output requires a single component")
		os.Exit(1)
	}

	var requested *ifsget.Version
	if cmd.Flags().Changed("version") {
		v := ifsget.Version(versionFlag)
		requested = &v
	}

	st := openStore(ctx)
	svc := ifsget.NewDownloadService(st, cfg.ChunkSize)

	// Progress bars interleave badly; only show one for a single download.
	showProgress := !noProgress && len(args) == 1

	g, ctx := errgroup.WithContext(ctx)
	for _, arg := range args {
		id := ifsget.ComponentID(arg)
		g.Go(func() error {
			return downloadComponent(ctx, st, svc, id, requested, showProgress)
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func downloadComponent(ctx context.Context, st ifsget.ContentStore, svc ifsget.DownloadService, id ifsget.ComponentID, requested *ifsget.Version, showProgress bool) error {
	pinned, err := ifsget.NewVersionResolver(st).Resolve(ctx, id, requested)
	if err != nil {
		return err
	}

	outputPath := outputFlag
	if outputPath == "" {
		outputPath = fmt.Sprintf("%s-%d.ifs", id, uint64(pinned))
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var bar *progressbar.ProgressBar
	if showProgress {
		size, err := st.Size(ctx, id, pinned)
		if err != nil {
			return err
		}
		bar = progressbar.DefaultBytes(size, fmt.Sprintf("Downloading %s@%d", id, uint64(pinned)))
	}

	sink := &fileSink{w: out, bar: bar}
	if err := svc.Download(ctx, id, &pinned, sink); err != nil {
		return err
	}

	if bar != nil {
		fmt.Println()
	}
	fmt.Printf("Downloaded %s@%d to %s\n", id, uint64(pinned), outputPath)
	return nil
}

func runPublish(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	id := ifsget.ComponentID(args[0])
	version := ifsget.Version(versionFlag)

	f, err := os.Open(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	st := openStore(ctx)
	pub, ok := st.(ifsget.Publisher)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: the %s backend is read-only\n", cfg.Backend)
		os.Exit(1)
	}

	dgst, n, err := pub.Put(ctx, id, version, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Published %s@%d (%d bytes, %s)\n", id, uint64(version), n, dgst)
}

// fileSink writes download results to a local file. Terminal error results
// are ignored here; Download's return value reports them.
type fileSink struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (s *fileSink) Send(res *ifsget.DownloadResult) error {
	if res.Err != nil {
		return nil
	}
	if _, err := s.w.Write(res.Chunk.Data); err != nil {
		return err
	}
	if s.bar != nil {
		s.bar.Add(len(res.Chunk.Data))
	}
	return nil
}
