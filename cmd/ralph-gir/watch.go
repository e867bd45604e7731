package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watch processes filename once and again after every write to it, until
// ctx is canceled. Errors from a single run are reported and do not stop
// the watch. The parent directory is watched so editors that replace the
// file on save are still seen.
func (p *pipeline) watch(ctx context.Context, filename string) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(p.errOut, "ralph-gir: watch: %v\n", err)
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		fmt.Fprintf(p.errOut, "ralph-gir: watch: %v\n", err)
		return err
	}

	p.processWatched(ctx, filename)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			p.processWatched(ctx, filename)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(p.errOut, "ralph-gir: watch: %v\n", err)
		}
	}
}

func (p *pipeline) processWatched(ctx context.Context, filename string) {
	p.log.Printf("processing %s", filename)
	if err := p.process(ctx, filename); err != nil {
		p.log.Printf("%s: %v", filename, err)
		return
	}
	p.log.Printf("%s: done (%d cached functions reused so far)", filename, p.hits)
}
