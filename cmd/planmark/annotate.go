package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sitewalk/planmark/internal/config"
	"github.com/sitewalk/planmark/internal/editor"
	"github.com/sitewalk/planmark/internal/photo"
	"github.com/spf13/cobra"
)

func newAnnotateCmd(a *app) *cobra.Command {
	var scriptPath string
	cmd := &cobra.Command{
		Use:   "annotate DRAWING_ID",
		Short: "Replay a gesture script against a drawing",
		Long: `Replay a gesture script against a drawing. One gesture per line:

  mode line|point|polyline|text|rectangle|photo|eraser|idle
  tap X Y              screen coordinates, mapped through the viewport
  zoom Z [AX AY]       set zoom, optionally keeping AX AY fixed on screen
  pan DX DY
  layer NAME           make NAME the active layer
  answer TEXT          queue the answer to the next text prompt
  dismiss              queue a cancelled text prompt
  camera FILE|cancel|deny
  save | close | cancel    finish the polyline in progress
  add-photo ID | retake ID [X Y] | delete-photo ID | photos ID`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			drawing, err := a.store.LoadDrawing(ctx, id)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if scriptPath != "" && scriptPath != "-" {
				f, err := os.Open(scriptPath)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			steps, err := parseScript(in)
			if err != nil {
				return err
			}

			observer, closeObservers := a.observers(ctx, &drawing)
			defer closeObservers()

			out := cmd.OutOrStdout()
			r := newRunner(out)
			ec := config.GetEditorConfig()
			opts := editor.DefaultOptions()
			opts.HitThreshold = ec.HitThreshold
			opts.MinZoom = ec.MinZoom
			opts.MaxZoom = ec.MaxZoom

			session, err := editor.NewSession(ctx, drawing, editor.Dependencies{
				Store:    a.store,
				Prompt:   r,
				Camera:   r,
				Observer: observer,
				Logger:   a.log,
			}, opts)
			if err != nil {
				return err
			}
			r.session = session

			runErr := r.run(ctx, steps)
			drainNotices(out, session)
			fmt.Fprintf(out, "%d annotations on %s\n", session.Scene().Len(), drawing.Name)
			return runErr
		},
	}
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "-", "gesture script, - for stdin")
	return cmd
}

// drainNotices prints the store failures the session reported.
func drainNotices(w io.Writer, s *editor.Session) {
	for {
		select {
		case n := <-s.Notices():
			fmt.Fprintf(w, "%s: %s\n", n.Severity(), n)
		default:
			return
		}
	}
}

func newPhotoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "photo", Short: "Browse and delete photo markers"}

	list := &cobra.Command{
		Use:   "list DRAWING_ID",
		Short: "List the photo markers of a drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			markers, err := photo.New(a.store, id, a.log).Markers(cmd.Context())
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tSEQ\tX\tY")
			for _, m := range markers {
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%.1f\n", m.ID, m.Sequence, m.Position.X, m.Position.Y)
			}
			return w.Flush()
		},
	}

	group := &cobra.Command{
		Use:   "group DRAWING_ID PHOTO_ID",
		Short: "Page through the photos grouped under a marker",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			did, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			id, err := parseIDArg(args[1])
			if err != nil {
				return err
			}
			photos, err := photo.New(a.store, did, a.log).LoadGroup(cmd.Context(), id)
			if err != nil {
				return err
			}
			printGroup(cmd.OutOrStdout(), photo.NewPager(photos))
			return nil
		},
	}

	var outPath string
	save := &cobra.Command{
		Use:   "save PHOTO_ID",
		Short: "Write the image of a photo to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			p, err := a.store.LoadPhoto(cmd.Context(), id)
			if err != nil {
				return err
			}
			return os.WriteFile(outPath, p.Image, 0644)
		},
	}
	save.Flags().StringVarP(&outPath, "output", "o", "photo.jpg", "target file")

	del := &cobra.Command{
		Use:   "delete DRAWING_ID PHOTO_ID",
		Short: "Delete a photo; deleting a marker promotes the next photo of its group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			did, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			id, err := parseIDArg(args[1])
			if err != nil {
				return err
			}
			promoted, err := photo.New(a.store, did, a.log).Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if promoted != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "promoted %s\n", *promoted)
			}
			return nil
		},
	}

	cmd.AddCommand(list, group, save, del)
	return cmd
}
