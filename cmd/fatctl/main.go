// Command fatctl is a small example program demonstrating package fatfs: it
// mounts a disk image file read-only and lists, reads, or stats a path on
// the active partition.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/danlamb/fatfs"
	"github.com/danlamb/fatfs/blockdev"
)

func main() {
	app := cli.App{
		Name:  "fatctl",
		Usage: "Inspect FAT16/FAT32 disk images",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List a directory's contents",
				ArgsUsage: "IMAGE PATH",
				Action:    runLs,
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents to stdout",
				ArgsUsage: "IMAGE PATH",
				Action:    runCat,
			},
			{
				Name:      "stat",
				Usage:     "Print a file or directory's metadata",
				ArgsUsage: "IMAGE PATH",
				Action:    runStat,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatctl: %s", err)
	}
}

func mountImage(imagePath string) (*fatfs.FS, *os.File, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, nil, err
	}
	dev := blockdev.FromReaderAt(f)
	fs, err := fatfs.Mount(dev, fatfs.ReadOnly())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return fs, f, nil
}

func pathArgs(c *cli.Context) (image, path string, err error) {
	if c.Args().Len() != 2 {
		return "", "", fmt.Errorf("expected IMAGE and PATH arguments")
	}
	return c.Args().Get(0), c.Args().Get(1), nil
}

func runLs(c *cli.Context) error {
	image, path, err := pathArgs(c)
	if err != nil {
		return err
	}
	fs, f, err := mountImage(image)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := fs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		kind := "-"
		if e.IsDir {
			kind = "d"
		}
		fmt.Printf("%s %10d %s %s\n", kind, e.Size, e.ModTime.Format("2006-01-02 15:04"), e.Name)
	}
	return nil
}

func runCat(c *cli.Context) error {
	image, path, err := pathArgs(c)
	if err != nil {
		return err
	}
	fs, f, err := mountImage(image)
	if err != nil {
		return err
	}
	defer f.Close()

	fd, err := fs.Open(path, fatfs.RDONLY)
	if err != nil {
		return err
	}
	defer fs.Close(fd)

	buf := make([]byte, 4096)
	for {
		n, err := fs.Read(fd, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		if _, err := os.Stdout.Write(buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

func runStat(c *cli.Context) error {
	image, path, err := pathArgs(c)
	if err != nil {
		return err
	}
	fs, f, err := mountImage(image)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := fs.Stat(path)
	if err != nil {
		return err
	}
	fmt.Printf("size:    %d\n", st.Size)
	fmt.Printf("mode:    %#o\n", st.Mode)
	fmt.Printf("is_dir:  %v\n", st.IsDir)
	fmt.Printf("mtime:   %s\n", st.ModTime.Format("2006-01-02 15:04:05"))
	return nil
}
