// Command simplefsctl is an interactive shell for creating, mounting, and
// poking at a simplefs image file, grounded on the teacher's cmd/main.go
// urfave/cli entrypoint plus a bufio-driven REPL for the inner commands
// (the teacher has no equivalent interactive shell of its own; the command
// set and naming are modeled on original_source/fs.c's command-line demo).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodefs/simplefs/blockdev"
	"github.com/inodefs/simplefs/fs"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "simplefsctl",
		Usage:     "Create, mount, and inspect a simplefs disk image",
		ArgsUsage: "IMAGE_FILE",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "blocks",
				Usage: "number of blocks to allocate if IMAGE_FILE doesn't exist",
				Value: 1024,
			},
		},
		Action: runShell,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("simplefsctl exited with an error")
	}
}

func runShell(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one argument: IMAGE_FILE", 1)
	}
	path := c.Args().Get(0)

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	device, err := openOrCreateDevice(path, uint(c.Uint("blocks")))
	if err != nil {
		return cli.Exit(fmt.Sprintf("opening %s: %s", path, err), 1)
	}
	if closer, ok := device.(io.Closer); ok {
		defer closer.Close()
	}

	fsys := fs.New(device).WithLogger(logger)

	shell := &shell{fsys: fsys, out: os.Stdout, scanner: bufio.NewScanner(os.Stdin)}
	return shell.run()
}

func openOrCreateDevice(path string, blocks uint) (blockdev.Device, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return blockdev.CreateFileDevice(path, fs.BlockSize, blocks)
	}
	if err != nil {
		return nil, err
	}

	existingBlocks := uint(info.Size()) / fs.BlockSize
	return blockdev.OpenFileDevice(path, fs.BlockSize, existingBlocks)
}

// shell is the REPL over a single Filesystem handle. It never exits
// uncleanly on a bad command: unknown input or a failed operation prints a
// message and loops, matching original_source/fs.c's demo shell where a
// single mistyped command doesn't kill the session.
type shell struct {
	fsys    *fs.Filesystem
	out     io.Writer
	scanner *bufio.Scanner
}

func (s *shell) run() error {
	fmt.Fprintln(s.out, "simplefsctl ready. Type 'help' for commands.")
	for {
		fmt.Fprint(s.out, "simplefs> ")
		if !s.scanner.Scan() {
			fmt.Fprintln(s.out)
			return nil
		}

		fields := strings.Fields(s.scanner.Text())
		if len(fields) == 0 {
			continue
		}

		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		s.dispatch(cmd, args)
	}
}

func (s *shell) dispatch(cmd string, args []string) {
	var err error
	switch cmd {
	case "help":
		s.help()
	case "format":
		err = s.fsys.Format()
	case "mount":
		err = s.fsys.Mount()
	case "unmount":
		err = s.fsys.Unmount()
	case "debug":
		err = s.fsys.Debug(s.out)
	case "check":
		err = s.fsys.Check()
	case "create":
		err = s.create()
	case "delete":
		err = s.withInumber(args, s.fsys.Delete)
	case "cat":
		err = s.cat(args)
	case "copyin":
		err = s.copyin(args)
	case "copyout":
		err = s.copyout(args)
	default:
		fmt.Fprintf(os.Stderr, "unrecognized command: %s (try 'help')\n", cmd)
		return
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
	}
}

func (s *shell) help() {
	fmt.Fprintln(s.out, `commands:
    format                       initialize a fresh filesystem
    mount                        mount the image
    unmount                      unmount the image
    debug                        dump the superblock and every valid inode
    check                        verify bitmap/inode consistency
    create                       allocate a new, empty inode
    delete <inumber>             free an inode and its blocks
    cat <inumber>                print a file's contents to stdout
    copyin <host-path> <inumber> copy a host file's contents into an inode
    copyout <inumber> <host-path> copy an inode's contents to a host file
    quit                         exit the shell`)
}

func (s *shell) create() error {
	n, err := s.fsys.Create()
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(s.out, "no free inodes")
		return nil
	}
	fmt.Fprintf(s.out, "created inode %d\n", n)
	return nil
}

func (s *shell) withInumber(args []string, action func(fs.Inumber) error) error {
	n, err := parseInumber(args)
	if err != nil {
		return err
	}
	return action(n)
}

func (s *shell) cat(args []string) error {
	n, err := parseInumber(args)
	if err != nil {
		return err
	}

	size := s.fsys.GetSize(n)
	if size < 0 {
		return fmt.Errorf("inode %d is not allocated", n)
	}

	buf := make([]byte, size)
	read, err := s.fsys.Read(n, buf, len(buf), 0)
	if err != nil {
		return err
	}
	_, err = s.out.Write(buf[:read])
	return err
}

func (s *shell) copyin(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: copyin <host-path> <inumber>")
	}
	n, err := parseInumber(args[1:])
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	written, err := s.fsys.Write(n, data, len(data), 0)
	if err != nil {
		return err
	}
	if written != len(data) {
		fmt.Fprintf(s.out, "warning: only %d of %d bytes fit\n", written, len(data))
	}
	return nil
}

func (s *shell) copyout(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: copyout <inumber> <host-path>")
	}
	n, err := parseInumber(args[:1])
	if err != nil {
		return err
	}

	size := s.fsys.GetSize(n)
	if size < 0 {
		return fmt.Errorf("inode %d is not allocated", n)
	}

	buf := make([]byte, size)
	read, err := s.fsys.Read(n, buf, len(buf), 0)
	if err != nil {
		return err
	}

	return os.WriteFile(args[1], buf[:read], 0o644)
}

func parseInumber(args []string) (fs.Inumber, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected an inumber argument")
	}
	v, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid inumber %q: %w", args[0], err)
	}
	return fs.Inumber(v), nil
}
