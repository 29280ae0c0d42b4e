package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sitewalk/planmark/internal/editor"
	"github.com/sitewalk/planmark/internal/logging"
	"github.com/sitewalk/planmark/internal/photo"
	"github.com/sitewalk/planmark/pkg/core"
)

// step is one line of an annotate script, e.g. "tap 120 80".
type step struct {
	line int
	verb string
	args []string
	rest string // raw text after the verb, for answer
}

// parseScript reads one gesture per line. Blank lines and lines starting with
// '#' are skipped.
func parseScript(r io.Reader) ([]step, error) {
	var steps []step
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		steps = append(steps, step{line: n, verb: strings.ToLower(verb), args: strings.Fields(rest), rest: rest})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return steps, nil
}

// shot is a queued camera result.
type shot struct {
	image []byte
	err   error
}

// runner replays a script against a session. Prompt answers and camera shots are
// queued by the script ahead of the taps that consume them.
type runner struct {
	session  *editor.Session
	out      io.Writer
	readFile func(string) ([]byte, error)

	answers []*string // nil entry cancels the prompt
	shots   []shot
}

func newRunner(out io.Writer) *runner {
	return &runner{out: out, readFile: os.ReadFile}
}

// Prompt implements editor.TextPrompt from the answer queue.
func (r *runner) Prompt(_ context.Context, _ core.Point) (string, bool, error) {
	if len(r.answers) == 0 {
		return "", false, nil
	}
	a := r.answers[0]
	r.answers = r.answers[1:]
	if a == nil {
		return "", false, nil
	}
	return *a, true, nil
}

// Capture implements editor.Camera from the shot queue.
func (r *runner) Capture(_ context.Context) ([]byte, error) {
	if len(r.shots) == 0 {
		return nil, core.ErrCancelled
	}
	s := r.shots[0]
	r.shots = r.shots[1:]
	return s.image, s.err
}

func (r *runner) run(ctx context.Context, steps []step) error {
	for _, st := range steps {
		if err := r.exec(logging.ContextWithAttrs(ctx, slog.Int("line", st.line)), st); err != nil {
			return fmt.Errorf("line %d (%s): %w", st.line, st.verb, err)
		}
	}
	return nil
}

func (r *runner) exec(ctx context.Context, st step) error {
	s := r.session
	switch st.verb {
	case "mode":
		if len(st.args) != 1 {
			return fmt.Errorf("%w: mode takes one argument", core.ErrValidation)
		}
		m, err := editor.ParseMode(st.args[0])
		if err != nil {
			return err
		}
		s.Enter(m)
		return nil

	case "idle":
		s.Leave()
		return nil

	case "tap":
		p, err := point(st.args)
		if err != nil {
			return err
		}
		return r.report(s.Tap(ctx, p))

	case "zoom":
		z, err := floats(st.args, 1, 3)
		if err != nil {
			return err
		}
		if len(z) == 3 {
			s.Viewport().ZoomAt(z[0], core.Point{X: z[1], Y: z[2]})
		} else {
			s.Viewport().SetZoom(z[0])
		}
		return nil

	case "pan":
		d, err := point(st.args)
		if err != nil {
			return err
		}
		s.Viewport().Pan(d.X, d.Y)
		return nil

	case "layer":
		if st.rest == "" {
			return fmt.Errorf("%w: layer needs a name", core.ErrValidation)
		}
		if _, err := s.Layers().List(ctx); err != nil {
			return err
		}
		l, ok := s.Layers().Find(st.rest)
		if !ok {
			return fmt.Errorf("%w: layer %q", core.ErrNotFound, st.rest)
		}
		return s.Layers().SetActive(l)

	case "answer":
		text := st.rest
		r.answers = append(r.answers, &text)
		return nil

	case "dismiss":
		r.answers = append(r.answers, nil)
		return nil

	case "camera":
		if len(st.args) != 1 {
			return fmt.Errorf("%w: camera takes a file, cancel or deny", core.ErrValidation)
		}
		switch st.args[0] {
		case "cancel":
			r.shots = append(r.shots, shot{err: core.ErrCancelled})
		case "deny":
			r.shots = append(r.shots, shot{err: fmt.Errorf("%w: camera permission denied", core.ErrIO)})
		default:
			data, err := r.readFile(st.args[0])
			if err != nil {
				r.shots = append(r.shots, shot{err: fmt.Errorf("%w: %w", core.ErrIO, err)})
				return nil
			}
			r.shots = append(r.shots, shot{image: data})
		}
		return nil

	case "save":
		return r.report(s.SavePolyline(ctx))

	case "close":
		return r.report(s.ClosePolyline(ctx))

	case "cancel":
		s.CancelPolyline()
		return nil

	case "add-photo":
		id, err := oneID(st.args)
		if err != nil {
			return err
		}
		return r.report(s.AddPhoto(ctx, id))

	case "retake":
		if len(st.args) != 3 {
			id, err := oneID(st.args)
			if err != nil {
				return err
			}
			return r.report(s.RetakePhoto(ctx, id))
		}
		id, err := oneID(st.args[:1])
		if err != nil {
			return err
		}
		p, err := point(st.args[1:])
		if err != nil {
			return err
		}
		return r.report(s.RetakePhotoAt(ctx, id, s.Viewport().ToContent(p)))

	case "delete-photo":
		id, err := oneID(st.args)
		if err != nil {
			return err
		}
		promoted, err := s.DeletePhoto(ctx, id)
		if err != nil {
			return err
		}
		if promoted != nil {
			fmt.Fprintf(r.out, "photo erased %s, promoted %s\n", id, *promoted)
		} else {
			fmt.Fprintf(r.out, "photo erased %s\n", id)
		}
		return nil

	case "photos":
		id, err := oneID(st.args)
		if err != nil {
			return err
		}
		group, err := s.Photos().LoadGroup(ctx, id)
		if err != nil {
			return err
		}
		printGroup(r.out, photo.NewPager(group))
		return nil

	default:
		return fmt.Errorf("%w: unknown gesture %q", core.ErrValidation, st.verb)
	}
}

func (r *runner) report(o editor.Outcome, err error) error {
	if err != nil {
		// rejected input is reported and the script continues
		if errors.Is(err, core.ErrValidation) {
			fmt.Fprintf(r.out, "rejected: %v\n", err)
			return nil
		}
		return err
	}
	switch o.Action {
	case editor.ActionCommitted, editor.ActionErased:
		fmt.Fprintf(r.out, "%s %s %s\n", o.Kind, o.Action, o.ID)
	case editor.ActionNone:
	default:
		if o.Kind != "" {
			fmt.Fprintf(r.out, "%s %s\n", o.Kind, o.Action)
		} else {
			fmt.Fprintf(r.out, "%s\n", o.Action)
		}
	}
	if r.session.IOErrorFlag() {
		fmt.Fprintln(r.out, "camera unavailable")
		r.session.ClearIOError()
	}
	return nil
}

func printGroup(w io.Writer, p *photo.Pager) {
	for {
		cur, ok := p.Current()
		if !ok {
			fmt.Fprintln(w, "no photos")
			return
		}
		fmt.Fprintf(w, "%s %s seq=%d taken=%s\n", p.Label(), cur.ID, cur.Sequence, cur.TakenAt.Format("2006-01-02 15:04"))
		if !p.Next() {
			return
		}
	}
}

func floats(args []string, counts ...int) ([]float64, error) {
	ok := false
	for _, c := range counts {
		if len(args) == c {
			ok = true
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: expected %v numbers, got %d", core.ErrValidation, counts, len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", core.ErrValidation, a)
		}
		out[i] = f
	}
	return out, nil
}

func point(args []string) (core.Point, error) {
	f, err := floats(args, 2)
	if err != nil {
		return core.Point{}, err
	}
	return core.Point{X: f[0], Y: f[1]}, nil
}

func oneID(args []string) (core.ID, error) {
	if len(args) != 1 {
		return core.NilID, fmt.Errorf("%w: expected one id", core.ErrValidation)
	}
	id, err := core.ParseID(args[0])
	if err != nil {
		return core.NilID, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	return id, nil
}
