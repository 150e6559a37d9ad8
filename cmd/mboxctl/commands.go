package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"vcmailbox/firmware"
	"vcmailbox/framebuffer"
	"vcmailbox/internal/backend"
	pt "vcmailbox/propertytag"
	"vcmailbox/trace"
)

type command func(b *backend.Backend, out io.Writer, args []string) error

var commands = map[string]command{
	"info":   cmdInfo,
	"memory": cmdMemory,
	"clock":  cmdClock,
	"power":  cmdPower,
	"temp":   cmdTemp,
	"fb":     cmdFramebuffer,
}

func cmdInfo(b *backend.Backend, out io.Writer, _ []string) error {
	info, err := firmware.New(b.Mailbox).BoardInfo()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "firmware  0x%08x\n", info.FirmwareRevision)
	fmt.Fprintf(out, "model     0x%08x\n", info.Model)
	fmt.Fprintf(out, "revision  0x%08x\n", info.Revision)
	fmt.Fprintf(out, "serial    0x%016x\n", info.Serial)
	fmt.Fprintf(out, "mac       %s\n", info.MAC)
	printRegion(out, "arm", info.ArmMemory)
	printRegion(out, "vc", info.VcMemory)
	return nil
}

func cmdMemory(b *backend.Backend, out io.Writer, _ []string) error {
	c := firmware.New(b.Mailbox)
	arm, err := c.ArmMemory()
	if err != nil {
		return err
	}
	vc, err := c.VcMemory()
	if err != nil {
		return err
	}
	printRegion(out, "arm", arm)
	printRegion(out, "vc", vc)
	return nil
}

func printRegion(out io.Writer, name string, r pt.MemoryRegion) {
	fmt.Fprintf(out, "%-9s 0x%08x-0x%08x (%d MiB)\n", name, r.Base, r.Base+r.Size, r.Size>>20)
}

func cmdClock(b *backend.Backend, out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: clock get|max|min|state|set|on|off <clock> [hz]", errUsage)
	}
	clock, err := pt.ParseClockID(args[1])
	if err != nil {
		return err
	}
	c := firmware.New(b.Mailbox)

	var rate uint32
	switch args[0] {
	case "get":
		rate, err = c.ClockRate(clock)
	case "max":
		rate, err = c.MaxClockRate(clock)
	case "min":
		rate, err = c.MinClockRate(clock)
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("%w: clock set <clock> <hz>", errUsage)
		}
		hz, perr := strconv.ParseUint(args[2], 0, 32)
		if perr != nil {
			return fmt.Errorf("%w: rate %q: %v", errUsage, args[2], perr)
		}
		rate, err = c.SetClockRate(clock, uint32(hz), false)
	case "state", "on", "off":
		var running bool
		switch args[0] {
		case "state":
			running, err = c.ClockState(clock)
		default:
			running, err = c.SetClockState(clock, args[0] == "on")
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%v %s\n", clock, onOff(running))
		return nil
	default:
		return fmt.Errorf("%w: clock %s", errUsage, args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%v %d Hz\n", clock, rate)
	return nil
}

func cmdPower(b *backend.Backend, out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: power get|on|off <device>", errUsage)
	}
	device, err := pt.ParseDeviceID(args[1])
	if err != nil {
		return err
	}
	c := firmware.New(b.Mailbox)

	var on bool
	switch args[0] {
	case "get":
		on, err = c.PowerState(device)
	case "on", "off":
		on, err = c.SetPowerState(device, args[0] == "on", true)
	default:
		return fmt.Errorf("%w: power %s", errUsage, args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%v %s\n", device, onOff(on))
	return nil
}

func cmdTemp(b *backend.Backend, out io.Writer, _ []string) error {
	c := firmware.New(b.Mailbox)
	temp, err := c.Temperature()
	if err != nil {
		return err
	}
	limit, err := c.MaxTemperature()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "temperature %.1f C (limit %.1f C)\n", float64(temp)/1000, float64(limit)/1000)
	return nil
}

func cmdFramebuffer(b *backend.Backend, out io.Writer, args []string) error {
	var (
		cfg      framebuffer.Config
		bgr      bool
		imageArg string
		pngArg   string
		rawArg   string
		release  bool
	)
	flags := pflag.NewFlagSet("fb", pflag.ContinueOnError)
	flags.Uint32Var(&cfg.Width, "width", 640, "width in pixels")
	flags.Uint32Var(&cfg.Height, "height", 480, "height in pixels")
	flags.Uint32Var(&cfg.Depth, "depth", 32, "bits per pixel: 16, 24 or 32")
	flags.BoolVar(&bgr, "bgr", false, "ask for BGR pixel order")
	flags.StringVar(&imageArg, "image", "", "PNG or JPEG to draw instead of the test card")
	flags.StringVar(&pngArg, "png", "", "save what was drawn as a PNG")
	flags.StringVar(&rawArg, "raw", "", "save what was drawn as raw ARGB8888")
	flags.BoolVar(&release, "release", false, "release the framebuffer afterwards")
	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg.Order = pt.PixelOrderRGB
	if bgr {
		cfg.Order = pt.PixelOrderBGR
	}

	info, err := framebuffer.Negotiate(b.Mailbox, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "framebuffer %s at 0x%08x (%d bytes)\n", framebuffer.Caption(info), info.Bus, info.Size)

	var img image.Image
	if imageArg != "" {
		if img, err = framebuffer.Load(imageArg); err != nil {
			return err
		}
	} else {
		img = framebuffer.TestCard(int(info.VirtualWidth), int(info.VirtualHeight), framebuffer.Caption(info))
	}

	blk, err := b.Arena.Resolve(info.Bus, int(info.Size))
	if err != nil {
		// The buffer lives outside the envelope arena (real firmware).
		fmt.Fprintf(out, "framebuffer not mapped: %v\n", err)
	} else {
		s, err := framebuffer.NewSurface(blk.Bytes(), info)
		if err != nil {
			return err
		}
		s.Blit(img)
		img = s.Snapshot()
	}

	if pngArg != "" {
		if err := writeFile(pngArg, func(w io.Writer) error { return png.Encode(w, img) }); err != nil {
			return err
		}
	}
	if rawArg != "" {
		if err := writeFile(rawArg, func(w io.Writer) error { return framebuffer.WriteRaw(w, img) }); err != nil {
			return err
		}
	}
	if release {
		return framebuffer.Release(b.Mailbox)
	}
	return nil
}

func cmdTrace(out io.Writer, args []string) error {
	var (
		session  string
		failures bool
	)
	flags := pflag.NewFlagSet("trace", pflag.ContinueOnError)
	flags.StringVar(&session, "session", "", "only events from this session")
	flags.BoolVar(&failures, "errors", false, "only failed exchanges")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("%w: trace [--session id] [--errors] <file>", errUsage)
	}

	events, err := trace.ReadFile(flags.Arg(0), trace.Filter{Session: session, ErrorOnly: failures})
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintln(out, e)
		for _, tag := range e.Tags() {
			fmt.Fprintf(out, "    %-20v size=%-3d state=0x%08x % x\n", tag.ID, tag.Size, tag.State, tag.Value)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
