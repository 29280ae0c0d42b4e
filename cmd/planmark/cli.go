package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sitewalk/planmark/internal/config"
	"github.com/sitewalk/planmark/internal/layers"
	"github.com/sitewalk/planmark/internal/syncer"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// run executes one CLI invocation and always releases what setup opened.
func run(ctx context.Context, args []string, out io.Writer) error {
	a := newApp()
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	err := root.ExecuteContext(ctx)
	if terr := a.teardown(context.Background()); err == nil {
		err = terr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "planmark",
		Short:         "Annotate scaled site drawings and sync them to the office backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config", "", "directory containing "+config.FileName)
	flags.BoolVar(&a.ephemeral, "ephemeral", false, "keep everything in memory for this invocation")
	flags.String("log-level", "", "override logLevel from the config file")
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))

	root.AddCommand(
		newProjectCmd(a),
		newDrawingCmd(a),
		newLayerCmd(a),
		newAnnotateCmd(a),
		newPhotoCmd(a),
		newAudioCmd(a),
		newExportCmd(a),
		newSyncCmd(a),
	)
	return root
}

func parseIDArg(s string) (core.ID, error) {
	id, err := core.ParseID(s)
	if err != nil {
		return core.NilID, fmt.Errorf("%w: invalid id %q", core.ErrValidation, s)
	}
	return id, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}

	var (
		address  string
		lon, lat float64
		remote   bool
	)
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := core.Project{ID: core.NewID(), Name: args[0], Address: address, CreatedAt: time.Now().UTC()}
			if p.Name == "" {
				return fmt.Errorf("%w: project name is empty", core.ErrValidation)
			}
			if cmd.Flags().Changed("lon") || cmd.Flags().Changed("lat") {
				p.Site = &core.SiteLocation{Longitude: lon, Latitude: lat}
			}
			if err := a.store.SaveProject(cmd.Context(), p); err != nil {
				return err
			}
			// the default layer exists from the start
			if _, err := layers.New(a.store, p.ID, a.log).List(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}
	create.Flags().StringVar(&address, "address", "", "site address")
	create.Flags().Float64Var(&lon, "lon", 0, "site longitude (WGS84)")
	create.Flags().Float64Var(&lat, "lat", 0, "site latitude (WGS84)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := a.store.LoadProjects(cmd.Context())
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tADDRESS\tSERVER ID")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Address, p.ServerID)
			}
			return w.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project with its drawings, layers and audio notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			p, err := a.store.LoadProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := a.store.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}
			if remote && p.ServerID != "" {
				return a.withSyncer(cmd.Context(), cmd.OutOrStdout(), func(s *syncer.Syncer) error {
					return s.DeleteProject(id, p.ServerID)
				})
			}
			return nil
		},
	}
	del.Flags().BoolVar(&remote, "remote", false, "also delete the project on the backend")

	cmd.AddCommand(create, list, del)
	return cmd
}

func newDrawingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "drawing", Short: "Manage drawings"}

	var (
		source        string
		width, height float64
		scale         int
		remote        bool
	)
	create := &cobra.Command{
		Use:   "create PROJECT_ID NAME",
		Short: "Attach a drawing to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			d := core.Drawing{
				ID:         core.NewID(),
				ProjectID:  pid,
				Name:       args[1],
				SourcePath: source,
				PageWidth:  width,
				PageHeight: height,
				Scale:      scale,
				CreatedAt:  time.Now().UTC(),
			}
			if err := a.store.SaveDrawing(cmd.Context(), d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.ID)
			return nil
		},
	}
	create.Flags().StringVar(&source, "source", "", "path of the drawing document")
	create.Flags().Float64Var(&width, "width", 0, "page width in content units")
	create.Flags().Float64Var(&height, "height", 0, "page height in content units")
	create.Flags().IntVar(&scale, "scale", 0, "scale denominator, e.g. 100 for 1:100")

	list := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List the drawings of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			drawings, err := a.store.LoadDrawings(cmd.Context(), pid)
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tSCALE\tSOURCE")
			for _, d := range drawings {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.ScaleLabel(), d.SourcePath)
			}
			return w.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a drawing and its annotations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			d, err := a.store.LoadDrawing(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := a.store.DeleteDrawing(cmd.Context(), id); err != nil {
				return err
			}
			if remote && d.ServerID != "" {
				return a.withSyncer(cmd.Context(), cmd.OutOrStdout(), func(s *syncer.Syncer) error {
					return s.DeleteDrawing(id, d.ServerID)
				})
			}
			return nil
		},
	}
	del.Flags().BoolVar(&remote, "remote", false, "also delete the drawing on the backend")

	cmd.AddCommand(create, list, del)
	return cmd
}

func newLayerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "layer", Short: "Manage the layers of a project"}

	list := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List layers; the default layer is created when missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			all, err := layers.New(a.store, pid, a.log).List(cmd.Context())
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tCOLOR")
			for _, l := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID, l.Name, l.Color.Hex())
			}
			return w.Flush()
		},
	}

	var color string
	create := &cobra.Command{
		Use:   "create PROJECT_ID NAME",
		Short: "Create a layer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			c, err := core.ParseColor(color)
			if err != nil {
				return err
			}
			l, err := layers.New(a.store, pid, a.log).Create(cmd.Context(), args[1], c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), l.ID)
			return nil
		},
	}
	create.Flags().StringVar(&color, "color", "#000000", "layer color as #RRGGBB or #RRGGBBAA")

	del := &cobra.Command{
		Use:   "delete PROJECT_ID LAYER_ID",
		Short: "Delete a layer and every annotation on it",
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
			return layers.New(a.store, pid, a.log).Delete(cmd.Context(), id)
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}
