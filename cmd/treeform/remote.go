package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-treeform/pkg/web"
)

var (
	serverURL     string
	remoteTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := remoteClient().Status(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <image>...",
	Short: "Hang images on the tree of a running server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := readPhotos(args)
		if err != nil {
			return err
		}
		ents, err := remoteClient().UploadPhotos(cmd.Context(), files)
		if err != nil {
			return err
		}
		for _, e := range ents {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.UploadID, e.Name)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, uploadCmd} {
		c.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "server base URL")
		c.Flags().DurationVar(&remoteTimeout, "timeout", 30*time.Second, "request timeout")
		rootCmd.AddCommand(c)
	}
}

func remoteClient() *web.Client {
	return web.NewClient(serverURL, remoteTimeout)
}

// readPhotos loads image files, sniffing their content type.
func readPhotos(paths []string) ([]web.PhotoFile, error) {
	files := make([]web.PhotoFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		ct := http.DetectContentType(data)
		if !strings.HasPrefix(ct, "image/") {
			return nil, fmt.Errorf("%s: not an image (%s)", p, ct)
		}
		files = append(files, web.PhotoFile{Name: filepath.Base(p), ContentType: ct, Data: data})
	}
	return files, nil
}
