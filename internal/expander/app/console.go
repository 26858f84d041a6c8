package app

import (
	"bufio"
	"context"
	"io"
)

// consoleLoop blocks until the quit command is read, console reaches EOF, ctx
// is done or the controller reports a fatal error. Other tokens are discarded.
func (a *App) consoleLoop(ctx context.Context, console io.Reader) error {
	tokens := make(chan string)
	done := make(chan struct{})
	defer close(done)
	if console != nil {
		go scanTokens(console, tokens, done)
	} else {
		close(tokens)
	}

	c := a.ctx
	for {
		select {
		case <-ctx.Done():
			c.Logger.Info().Msg("interrupted")
			return nil
		case err := <-c.Controller.Fatal():
			return err
		case tok, ok := <-tokens:
			if !ok {
				c.Logger.Info().Msg("console closed")
				return nil
			}
			if tok == QuitCommand {
				return nil
			}
			c.Logger.Debug().Str("token", tok).Msg("ignoring console input")
		}
	}
}

// scanTokens sends whitespace-delimited tokens until EOF or done is closed. A
// goroutine blocked reading a terminal stays behind until the process exits.
func scanTokens(r io.Reader, out chan<- string, done <-chan struct{}) {
	defer close(out)
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-done:
			return
		}
	}
}
