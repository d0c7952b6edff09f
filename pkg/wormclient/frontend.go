package wormclient

import (
	"bufio"
	"context"
	"strings"
)

// feSendLoop is the stream sender activity: it drains the
// forwarding queue to the front-end, writing each queued line
// newline-terminated (GameOver produces no line).
func (c *Client) feSendLoop(ctx context.Context) error {
	w := bufio.NewWriter(c.feConn)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-c.lines:
			if !ok {
				return nil
			}
			if _, err := w.WriteString(line); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

// feReceiveLoop is the stream receiver activity: it parses the front-end's
// key-state lines and updates turn_direction:
// turn_direction = 1*leftDown + (-1)*rightDown, so both held yields 0.
func (c *Client) feReceiveLoop(ctx context.Context) error {
	sc := bufio.NewScanner(c.feConn)
	var left, right bool
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		switch strings.TrimSpace(sc.Text()) {
		case "LEFT_KEY_DOWN":
			left = true
		case "LEFT_KEY_UP":
			left = false
		case "RIGHT_KEY_DOWN":
			right = true
		case "RIGHT_KEY_UP":
			right = false
		default:
			continue
		}

		var td int32
		if left {
			td++
		}
		if right {
			td--
		}
		c.turnDirection.Store(td)
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}
