package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"im-go/internal/app"
	"im-go/internal/config"
	"im-go/internal/im"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an IMApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "OpenWorkspace", "Scan").
func newApp(operation string) (*app.IMApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewIMApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// withWorkspace opens the workspace named by the --workspace flag and runs fn against it.
func withWorkspace(cmd *cobra.Command, operation string, scan bool, fn func(a *app.IMApp, s *im.State) error) error {
	path, _ := cmd.Flags().GetString("workspace")

	a, err := newApp(operation)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.OpenWorkspace(path, scan); err != nil {
		return a.Finish(fmt.Errorf("opening workspace: %w", err))
	}
	return a.Finish(fn(a, a.State()))
}

// imageByPath resolves a workspace-relative path to its catalog row.
func imageByPath(a *app.IMApp, relativePath string) (*im.Image, error) {
	img, err := a.Manager().Images.ByPath(relativePath)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("image not found: %s", relativePath)
	}
	return img, nil
}

// tagByRef resolves a tag given its id or its name (case-insensitive).
func tagByRef(s *im.State, ref string) (*im.Tag, error) {
	id, idErr := strconv.ParseInt(ref, 10, 64)
	for _, t := range s.Tags() {
		if (idErr == nil && t.ID == id) || strings.EqualFold(t.Name, ref) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tag not found: %s", ref)
}

// confirm asks for a yes/no answer on the terminal. Without a terminal the
// action is refused unless --yes was given.
func confirm(prompt string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("refusing to continue without --yes: stdin is not a terminal")
	}
	fmt.Printf("%s [y/N] ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func formatTags(tags []*im.Tag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

var rootCmd = &cobra.Command{
	Use:          "im",
	Short:        "Image workspace catalog",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:        %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:         %s\n", cfg.LogDir)
		fmt.Printf("Log Level:       %s\n", cfg.LogLevel)
		fmt.Printf("Catalog:         %s %s\n", cfg.Catalog.Type, cfg.Catalog.DataDir)
		fmt.Printf("Settings Folder: %s\n", cfg.Workspace.SettingsFolder)
		fmt.Printf("Database Name:   %s\n", cfg.Workspace.DatabaseName)
		fmt.Printf("Formats:         %s\n", strings.Join(cfg.Workspace.SupportedFormats, " "))
		fmt.Printf("Max File Size:   %d\n", cfg.Workspace.MaxFileSize)
		if len(cfg.Filesystem.Ignore) > 0 {
			fmt.Printf("Ignore:          %s\n", strings.Join(cfg.Filesystem.Ignore, " "))
		}
		return nil
	},
}

// workspace command
var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage workspaces",
}

var workspaceOpenCmd = &cobra.Command{
	Use:   "open [PATH]",
	Short: "Register and scan a workspace folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("OpenWorkspace")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		ws, err := a.OpenWorkspace(target, true)
		if err != nil {
			return a.Finish(err)
		}

		fmt.Printf("Opened workspace #%d %s (%s)\n", ws.ID, ws.Name, ws.AbsolutePath)
		fmt.Printf("%d image(s), %d tag(s)\n", len(a.State().Images()), len(a.State().Tags()))
		return nil
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("ListWorkspaces")
		if err != nil {
			return err
		}
		defer a.Close()

		workspaces, err := a.ListWorkspaces(limit)
		if err != nil {
			return a.Finish(err)
		}

		if len(workspaces) == 0 {
			fmt.Println("No workspaces registered.")
			return nil
		}

		for _, ws := range workspaces {
			fmt.Printf("#%-4d  %-20s  %s  %s\n",
				ws.ID,
				ws.Name,
				ws.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
				ws.AbsolutePath,
			)
		}
		return nil
	},
}

var workspaceRemoveCmd = &cobra.Command{
	Use:   "remove ID|PATH",
	Short: "Forget a workspace (files are left on disk)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveWorkspace")
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.RemoveWorkspace(args[0])
		if err != nil {
			return a.Finish(err)
		}
		fmt.Printf("Removed workspace #%d %s\n", ws.ID, ws.AbsolutePath)
		return nil
	},
}

var workspaceInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show workspace metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "WorkspaceInfo", false, func(a *app.IMApp, s *im.State) error {
			info, err := a.WorkspaceInfo()
			if err != nil {
				return err
			}
			ws := s.Workspace()
			fmt.Printf("Workspace #%d %s\n", ws.ID, ws.AbsolutePath)

			keys := make([]string, 0, len(info))
			for k := range info {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %-16s %s\n", k, info[k])
			}
			return nil
		})
	},
}

var workspaceExportCmd = &cobra.Command{
	Use:   "export DEST",
	Short: "Write a snapshot of the workspace store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "ExportWorkspace", false, func(a *app.IMApp, s *im.State) error {
			dest, err := a.ExportWorkspace(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", dest)
			return nil
		})
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Reconcile the workspace with its folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		watchFlag, _ := cmd.Flags().GetBool("watch")

		return withWorkspace(cmd, "Scan", true, func(a *app.IMApp, s *im.State) error {
			fmt.Printf("%d image(s) in %s\n", len(s.Images()), s.Workspace().AbsolutePath)
			if !watchFlag {
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Println("Watching for changes (Ctrl-C to stop)...")
			return a.Watch(ctx, func(images []*im.Image) {
				fmt.Printf("%d image(s) after rescan\n", len(images))
			})
		})
	},
}

// image command
var imageCmd = &cobra.Command{
	Use:     "image",
	Aliases: []string{"img"},
	Short:   "Browse and manage images",
}

var imageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List images, optionally filtered by tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		tagRefs, _ := cmd.Flags().GetStringSlice("tag")
		matchAny, _ := cmd.Flags().GetBool("any")

		return withWorkspace(cmd, "ListImages", true, func(a *app.IMApp, s *im.State) error {
			for _, ref := range tagRefs {
				t, err := tagByRef(s, ref)
				if err != nil {
					return err
				}
				s.SelectTag(t.ID)
			}
			if matchAny {
				s.SetFilterMode(im.FilterAny)
			}

			images, err := s.FilteredImages()
			if err != nil {
				return err
			}
			if len(images) == 0 {
				fmt.Println("No images.")
				return nil
			}
			for _, img := range images {
				fmt.Printf("%6d  %-40s  %s\n", img.ID, img.RelativePath, formatTags(img.Tags))
			}
			return nil
		})
	},
}

var imageShowCmd = &cobra.Command{
	Use:   "show PATH",
	Short: "Show an image with its tags and connections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "ShowImage", false, func(a *app.IMApp, s *im.State) error {
			img, err := imageByPath(a, args[0])
			if err != nil {
				return err
			}
			tags, err := s.TagsForImage(img.ID)
			if err != nil {
				return err
			}
			conns, err := s.ConnectionsForImage(img.ID)
			if err != nil {
				return err
			}

			fmt.Printf("ID:        %d\n", img.ID)
			fmt.Printf("Name:      %s\n", img.Name)
			fmt.Printf("Path:      %s\n", img.RelativePath)
			fmt.Printf("Size:      %d\n", img.FileSize)
			fmt.Printf("Extension: %s\n", img.Extension)
			fmt.Printf("Modified:  %s\n", img.ModifiedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Tags:      %s\n", formatTags(tags))
			fmt.Printf("Connections:\n")
			for _, c := range conns {
				fmt.Printf("  #%d  %s\n", c.ConnectedImage.ID, c.ConnectedImage.RelativePath)
			}
			return nil
		})
	},
}

var imageMoveCmd = &cobra.Command{
	Use:   "mv OLD NEW",
	Short: "Move an image within the workspace",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "MoveImage", false, func(a *app.IMApp, s *im.State) error {
			newPath, err := s.MoveImage(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Moved %s -> %s\n", args[0], newPath)
			return nil
		})
	},
}

var imageRenameCmd = &cobra.Command{
	Use:   "rename PATH NEWNAME",
	Short: "Rename an image in place",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "RenameImage", false, func(a *app.IMApp, s *im.State) error {
			img, err := imageByPath(a, args[0])
			if err != nil {
				return err
			}
			newPath, err := s.RenameImage(img.Name, args[1], img.RelativePath)
			if err != nil {
				return err
			}
			fmt.Printf("Renamed %s -> %s\n", args[0], newPath)
			return nil
		})
	},
}

var imageDeleteCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "Delete an image file and its catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		return withWorkspace(cmd, "DeleteImage", false, func(a *app.IMApp, s *im.State) error {
			ok, err := confirm(fmt.Sprintf("Delete %s from disk?", args[0]), yes)
			if err != nil || !ok {
				return err
			}
			if err := s.DeleteImage(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

var imagePathCmd = &cobra.Command{
	Use:   "path PATH",
	Short: "Print the absolute path of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "ImagePath", false, func(a *app.IMApp, s *im.State) error {
			p, err := a.Manager().Images.AbsolutePath(args[0], s.Workspace().AbsolutePath)
			if err != nil {
				return err
			}
			fmt.Println(p)
			return nil
		})
	},
}

var imageBase64Cmd = &cobra.Command{
	Use:   "base64 PATH",
	Short: "Print an image as a data URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "ImageBase64", false, func(a *app.IMApp, s *im.State) error {
			data, err := a.Manager().Images.AsBase64(args[0], s.Workspace().AbsolutePath)
			if err != nil {
				return err
			}
			fmt.Println(data)
			return nil
		})
	},
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags",
}

var tagCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, _ := cmd.Flags().GetString("color")

		return withWorkspace(cmd, "CreateTag", false, func(a *app.IMApp, s *im.State) error {
			t, err := s.CreateTag(args[0], color)
			if err != nil {
				return err
			}
			fmt.Printf("Created tag #%d %s\n", t.ID, t.Name)
			return nil
		})
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		counts, _ := cmd.Flags().GetBool("counts")

		return withWorkspace(cmd, "ListTags", false, func(a *app.IMApp, s *im.State) error {
			if !counts {
				for _, t := range s.Tags() {
					fmt.Printf("#%-4d  %-24s  %s\n", t.ID, t.Name, t.Color)
				}
				return nil
			}

			tags, err := a.Manager().Tags.AllWithImageCount()
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Printf("#%-4d  %-24s  %-8s  %d\n", t.ID, t.Name, t.Color, t.ImageCount)
			}
			return nil
		})
	},
}

var tagUpdateCmd = &cobra.Command{
	Use:   "update TAG",
	Short: "Rename or recolor a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var update im.TagUpdate
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			update.Name = &name
		}
		if cmd.Flags().Changed("color") {
			color, _ := cmd.Flags().GetString("color")
			update.Color = &color
		}

		return withWorkspace(cmd, "UpdateTag", false, func(a *app.IMApp, s *im.State) error {
			t, err := tagByRef(s, args[0])
			if err != nil {
				return err
			}
			if err := s.UpdateTag(t.ID, update); err != nil {
				return err
			}
			fmt.Printf("Updated tag #%d\n", t.ID)
			return nil
		})
	},
}

var tagDeleteCmd = &cobra.Command{
	Use:   "rm TAG",
	Short: "Delete a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		return withWorkspace(cmd, "DeleteTag", false, func(a *app.IMApp, s *im.State) error {
			t, err := tagByRef(s, args[0])
			if err != nil {
				return err
			}
			ok, err := confirm(fmt.Sprintf("Delete tag %q?", t.Name), yes)
			if err != nil || !ok {
				return err
			}
			if err := s.DeleteTag(t.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted tag %s\n", t.Name)
			return nil
		})
	},
}

var tagAddCmd = &cobra.Command{
	Use:   "add IMAGE TAG",
	Short: "Attach a tag to an image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "AddTagToImage", false, func(a *app.IMApp, s *im.State) error {
			img, err := imageByPath(a, args[0])
			if err != nil {
				return err
			}
			t, err := tagByRef(s, args[1])
			if err != nil {
				return err
			}
			return s.AddTagToImage(img.ID, t.ID)
		})
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove IMAGE TAG",
	Short: "Detach a tag from an image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "RemoveTagFromImage", false, func(a *app.IMApp, s *im.State) error {
			img, err := imageByPath(a, args[0])
			if err != nil {
				return err
			}
			t, err := tagByRef(s, args[1])
			if err != nil {
				return err
			}
			return s.RemoveTagFromImage(img.ID, t.ID)
		})
	},
}

var tagSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find tags whose name contains QUERY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "SearchTags", false, func(a *app.IMApp, s *im.State) error {
			tags, err := a.Manager().Tags.Search(args[0])
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Printf("#%-4d  %s\n", t.ID, t.Name)
			}
			return nil
		})
	},
}

// conn command
var connCmd = &cobra.Command{
	Use:   "conn",
	Short: "Manage connections between images",
}

var connCreateCmd = &cobra.Command{
	Use:   "create IMAGE IMAGE",
	Short: "Connect two images",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "CreateConnection", false, func(a *app.IMApp, s *im.State) error {
			first, err := imageByPath(a, args[0])
			if err != nil {
				return err
			}
			second, err := imageByPath(a, args[1])
			if err != nil {
				return err
			}
			c, err := s.CreateConnection(first.ID, second.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Created connection #%d\n", c.ID)
			return nil
		})
	},
}

var connRemoveCmd = &cobra.Command{
	Use:   "rm IMAGE IMAGE",
	Short: "Disconnect two images",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "RemoveConnection", false, func(a *app.IMApp, s *im.State) error {
			first, err := imageByPath(a, args[0])
			if err != nil {
				return err
			}
			second, err := imageByPath(a, args[1])
			if err != nil {
				return err
			}
			return s.RemoveConnection(first.ID, second.ID)
		})
	},
}

var connListCmd = &cobra.Command{
	Use:   "list [IMAGE]",
	Short: "List connections, or those of one image",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "ListConnections", false, func(a *app.IMApp, s *im.State) error {
			if len(args) == 1 {
				img, err := imageByPath(a, args[0])
				if err != nil {
					return err
				}
				conns, err := s.ConnectionsForImage(img.ID)
				if err != nil {
					return err
				}
				for _, c := range conns {
					fmt.Printf("#%-4d  %s\n", c.ConnectionID, c.ConnectedImage.RelativePath)
				}
				return nil
			}

			conns, err := a.Manager().Connections.All()
			if err != nil {
				return err
			}
			for _, c := range conns {
				fmt.Printf("#%-4d  %d <-> %d\n", c.ID, c.ImageAID, c.ImageBID)
			}
			return nil
		})
	},
}

var connStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "ConnectionStats", false, func(a *app.IMApp, s *im.State) error {
			stats, err := a.Manager().Connections.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Connections:      %d\n", stats.TotalConnections)
			fmt.Printf("Connected images: %d\n", stats.ConnectedImages)
			return nil
		})
	},
}

var connGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the image graph as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, "GraphData", false, func(a *app.IMApp, s *im.State) error {
			graph, err := a.Manager().Connections.GraphData()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(graph)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "Workspace folder")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// workspace subcommands
	workspaceCmd.AddCommand(workspaceOpenCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceListCmd.Flags().IntP("limit", "n", 10, "Maximum number of workspaces to show (0 for all)")
	workspaceCmd.AddCommand(workspaceRemoveCmd)
	workspaceCmd.AddCommand(workspaceInfoCmd)
	workspaceCmd.AddCommand(workspaceExportCmd)

	// image subcommands
	imageCmd.AddCommand(imageListCmd)
	imageListCmd.Flags().StringSliceP("tag", "t", nil, "Only images with this tag (repeatable)")
	imageListCmd.Flags().Bool("any", false, "Match any selected tag instead of all")
	imageCmd.AddCommand(imageShowCmd)
	imageCmd.AddCommand(imageMoveCmd)
	imageCmd.AddCommand(imageRenameCmd)
	imageCmd.AddCommand(imageDeleteCmd)
	imageDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	imageCmd.AddCommand(imagePathCmd)
	imageCmd.AddCommand(imageBase64Cmd)

	// tag subcommands
	tagCmd.AddCommand(tagCreateCmd)
	tagCreateCmd.Flags().StringP("color", "c", "", "Hex color, e.g. #ff8800")
	tagCmd.AddCommand(tagListCmd)
	tagListCmd.Flags().Bool("counts", false, "Show how many images carry each tag")
	tagCmd.AddCommand(tagUpdateCmd)
	tagUpdateCmd.Flags().String("name", "", "New name")
	tagUpdateCmd.Flags().StringP("color", "c", "", "New hex color (empty clears it)")
	tagCmd.AddCommand(tagDeleteCmd)
	tagDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	tagCmd.AddCommand(tagSearchCmd)

	// conn subcommands
	connCmd.AddCommand(connCreateCmd)
	connCmd.AddCommand(connRemoveCmd)
	connCmd.AddCommand(connListCmd)
	connCmd.AddCommand(connStatsCmd)
	connCmd.AddCommand(connGraphCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("watch", false, "Keep running and rescan when files change")
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(connCmd)
}
