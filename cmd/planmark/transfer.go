package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sitewalk/planmark/internal/api"
	"github.com/sitewalk/planmark/internal/audio"
	"github.com/sitewalk/planmark/internal/config"
	"github.com/sitewalk/planmark/internal/export"
	"github.com/sitewalk/planmark/internal/logging"
	"github.com/sitewalk/planmark/internal/syncer"
	"github.com/spf13/cobra"
)

func newAudioCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "audio", Short: "Manage voice notes of a project"}

	var drawingName string
	add := &cobra.Command{
		Use:   "add PROJECT_ID FILE.wav",
		Short: "Attach a WAV recording to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			note, err := audio.New(a.store, pid, a.log).IngestFile(cmd.Context(), drawingName, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", note.ID, note.Duration)
			return nil
		},
	}
	add.Flags().StringVar(&drawingName, "drawing", "", "name of the drawing the note talks about")

	list := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List voice notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			notes, err := audio.New(a.store, pid, a.log).List(cmd.Context())
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tDRAWING\tDURATION\tRECORDED")
			for _, n := range notes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.DrawingName, n.Duration, n.RecordedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete PROJECT_ID NOTE_ID",
		Short: "Delete a voice note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			id, err := parseIDArg(args[1])
			if err != nil {
				return err
			}
			return audio.New(a.store, pid, a.log).Delete(cmd.Context(), id)
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		outPath  string
		compress bool
	)
	cmd := &cobra.Command{
		Use:   "export DRAWING_ID",
		Short: "Write the annotations of a drawing as a JSON bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			b, err := export.Build(cmd.Context(), a.store, id)
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				return export.Write(cmd.OutOrStdout(), b, compress)
			}
			if err := export.WriteFile(outPath, b, compress); err != nil {
				return err
			}
			a.log.Info("Exported drawing", "drawing", id.String(), "records", b.Count(), "path", outPath)
			fmt.Fprintf(cmd.OutOrStdout(), "%d records written to %s\n", b.Count(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "-", "target file, - for stdout")
	cmd.Flags().BoolVar(&compress, "gzip", false, "gzip the bundle")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	var upload bool
	cmd := &cobra.Command{
		Use:   "sync PROJECT_ID",
		Short: "Push a project and its drawings to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pid, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			if _, err := a.store.LoadProject(ctx, pid); err != nil {
				return err
			}
			drawings, err := a.store.LoadDrawings(ctx, pid)
			if err != nil {
				return err
			}

			var staging string
			if upload {
				staging, err = os.MkdirTemp("", "planmark-upload-*")
				if err != nil {
					return err
				}
				defer os.RemoveAll(staging)
			}

			return a.withSyncer(ctx, cmd.OutOrStdout(), func(s *syncer.Syncer) error {
				if err := s.SaveProject(pid); err != nil {
					return err
				}
				for _, d := range drawings {
					if err := s.SaveDrawing(d.ID); err != nil {
						return err
					}
					if !upload {
						continue
					}
					if d.SourcePath != "" {
						if err := s.Upload(d.ID, d.SourcePath); err != nil {
							return err
						}
					}
					b, err := export.Build(ctx, a.store, d.ID)
					if err != nil {
						return err
					}
					path := filepath.Join(staging, d.ID.String()+".json.gz")
					if err := export.WriteFile(path, b, true); err != nil {
						return err
					}
					if err := s.Upload(d.ID, path); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "also upload drawing documents and annotation bundles")
	return cmd
}

// withSyncer runs fn against a syncer talking to the configured backend, waits
// for every queued job and prints one line per result.
func (a *app) withSyncer(ctx context.Context, out io.Writer, fn func(*syncer.Syncer) error) error {
	apiCfg := config.GetAPIConfig()
	client := api.New(apiCfg.ServerURL, apiCfg.APIKey, api.WithTimeout(apiCfg.Timeout))
	if err := client.Healthcheck(ctx); err != nil {
		a.log.Warn("Backend healthcheck failed", "url", apiCfg.ServerURL, "error", err)
	}

	var mu sync.Mutex
	failed := 0
	s, err := syncer.New(syncer.Dependencies{
		Client:    client,
		Store:     a.store,
		Logger:    a.log,
		Dispatch:  logging.NewDispatcherLogger(a.zlog),
		QueueSize: apiCfg.QueueSize,
		OnComplete: func(r syncer.Result) {
			mu.Lock()
			defer mu.Unlock()
			switch {
			case r.Err != nil:
				failed++
				fmt.Fprintf(out, "failed   %s: %v\n", r.Job, r.Err)
			case r.Deferred:
				fmt.Fprintf(out, "deferred %s\n", r.Job)
			default:
				fmt.Fprintf(out, "done     %s %s\n", r.Job, r.ServerID)
			}
		},
	})
	if err != nil {
		return err
	}

	runErr := fn(s)
	closeErr := s.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	if pending := s.Pending(); len(pending) > 0 {
		return fmt.Errorf("%w: %d sync jobs did not complete (%d failed attempts)", api.ErrNetwork, len(pending), failed)
	}
	return nil
}
