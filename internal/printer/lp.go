// Package printer owns OS print dispatch. The core only sees the
// Dispatcher interface and classified errors; everything below it is
// commodity spooler glue.
package printer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"

	"github.com/orrn/printflow/internal/core"
)

// LPDispatcher shells out to lp(1). PageSize and sided defaults are
// configured at the destination; the core hands over only document, color
// mode and copy count.
type LPDispatcher struct {
	printerName string
}

func NewLPDispatcher(printerName string) *LPDispatcher {
	return &LPDispatcher{printerName: printerName}
}

func (d *LPDispatcher) Dispatch(ctx context.Context, path string, mode core.ColorMode, copies int) error {
	if copies < 1 {
		copies = 1
	}

	args := []string{"-n", strconv.Itoa(copies)}
	if d.printerName != "" {
		args = append(args, "-d", d.printerName)
	}
	colorModel := "monochrome"
	if mode == core.ColorModeColor {
		colorModel = "color"
	}
	args = append(args, "-o", "print-color-mode="+colorModel, "--", path)

	cmd := exec.CommandContext(ctx, "lp", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		log.Printf("[printer] lp dispatch of %s failed: %s", path, msg)
		return &core.DispatchError{
			Kind: classifyMessage(msg),
			Err:  fmt.Errorf("lp: %s", msg),
		}
	}
	return nil
}

// classifyMessage assigns the error kind at the point of failure so the
// queue can pick a retry tier without parsing prose again.
func classifyMessage(msg string) core.Kind {
	lower := strings.ToLower(msg)
	for _, phrase := range []string{
		"not connected",
		"offline",
		"powered off",
		"turned off",
		"unreachable",
		"unable to connect",
		"connection refused",
		"does not exist",
	} {
		if strings.Contains(lower, phrase) {
			return core.KindPrinterUnavailable
		}
	}
	return core.KindTransient
}
