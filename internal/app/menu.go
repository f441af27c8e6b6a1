package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/ayusman/banknotes/internal/capture"
	"github.com/ayusman/banknotes/internal/store"
)

// Menu asks the operator for a mode on out, reads the answers from in and
// runs the chosen detection. Invalid answers and detection failures are
// logged and end the menu; only a failure to read in is returned.
func (a *App) Menu(ctx context.Context, in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)

	log.Println("Welcome to Banknote Detection!")
	fmt.Fprintln(out, "Choose an option:")
	fmt.Fprintln(out, "1. Real-Time Detection")
	fmt.Fprintln(out, "2. Detect from Image Path/URL")
	fmt.Fprint(out, "Enter your choice (1 or 2): ")

	choice, err := readLine(r)
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		return a.chooseCamera(ctx, r, out)
	case "2":
		return a.chooseSource(ctx, r, out)
	default:
		log.Println("Invalid choice. Exiting.")
		return nil
	}
}

func (a *App) chooseCamera(ctx context.Context, r *bufio.Reader, out io.Writer) error {
	devices, err := a.cameras.ListDevices()
	if err != nil {
		log.Printf("No cameras found: %v", err)
		return nil
	}

	fmt.Fprintln(out, "Available Cameras:")
	for _, d := range devices {
		fmt.Fprintln(out, d)
	}

	last, hasLast := a.lastCamera()
	if hasLast {
		fmt.Fprintf(out, "Select a camera by index [%d]: ", last)
	} else {
		fmt.Fprint(out, "Select a camera by index: ")
	}

	line, err := readLine(r)
	if err != nil {
		return err
	}

	index := last
	if line != "" || !hasLast {
		index, err = strconv.Atoi(line)
		if err != nil {
			log.Println("Invalid input. Please enter a valid number.")
			return nil
		}
	}

	device, ok := capture.FindDevice(devices, index)
	if !ok {
		log.Println("Invalid camera index selected.")
		return nil
	}

	log.Printf("Using camera index %d: %s", index, device.Name)
	a.remember(store.KeyLastCamera, strconv.Itoa(index))

	if err := a.RunContinuous(ctx, index); err != nil {
		log.Printf("Real-time detection failed: %v", err)
	}
	return nil
}

func (a *App) chooseSource(ctx context.Context, r *bufio.Reader, out io.Writer) error {
	last := a.recall(store.KeyLastSource)
	if last != "" {
		fmt.Fprintf(out, "Enter the image path or URL [%s]: ", last)
	} else {
		fmt.Fprint(out, "Enter the image path or URL: ")
	}

	input, err := readLine(r)
	if err != nil {
		return err
	}
	if input == "" {
		input = last
	}

	if err := a.RunSingleShot(ctx, input); err != nil {
		log.Printf("Error processing the image: %v", err)
		return nil
	}

	a.remember(store.KeyLastSource, input)
	return nil
}

// readLine returns the next trimmed line. A missing final newline is accepted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (a *App) lastCamera() (int, bool) {
	if a.store == nil {
		return 0, false
	}

	index, ok, err := a.store.Settings().GetInt(store.KeyLastCamera)
	if err != nil {
		log.Printf("Failed to read last camera: %v", err)
		return 0, false
	}
	return index, ok
}

func (a *App) recall(key string) string {
	if a.store == nil {
		return ""
	}

	value, _, err := a.store.Settings().Get(key)
	if err != nil {
		log.Printf("Failed to read setting %s: %v", key, err)
		return ""
	}
	return value
}

func (a *App) remember(key, value string) {
	if a.store == nil {
		return
	}

	if err := a.store.Settings().Set(key, value); err != nil {
		log.Printf("Failed to save setting %s: %v", key, err)
	}
}
