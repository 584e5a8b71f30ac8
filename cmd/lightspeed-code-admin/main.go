package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/persistence"
	"github.com/tcriess/lightspeed-code/types"
)

// A very simple CLI tool for the administration of stored lightspeed-code rooms. It works on the persister
// directly, a buntdb file is locked while the relay has it open.

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func printJSON(v interface{}) {
	r, err := json.Marshal(v)
	if err != nil {
		globals.AppLogger.Error("could not marshal result", "error", err)
		return
	}
	fmt.Println(string(r))
}

func main() {
	log.SetFlags(0)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)

	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	defer persister.Close()

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms, files or chat",
		Long:  `show is for printing stored rooms, their files and their chat history.`,
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all stored rooms.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			printJSON(rooms)
		},
	}
	var cmdShowRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Show room",
		Long:  `show room prints the settings and the active file of the room with the given id.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			room := types.Room{Id: args[0]}
			err := persister.GetRoom(&room)
			if err != nil {
				globals.AppLogger.Error("could not get room", "error", err)
				return
			}
			printJSON(room)
		},
	}
	var cmdShowFiles = &cobra.Command{
		Use:   "files [room id]",
		Short: "Show files",
		Long:  `show files lists the names and languages of the files of a room.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			files, err := persister.LoadFiles(args[0])
			if err != nil {
				globals.AppLogger.Error("could not load files", "error", err)
				return
			}
			for _, f := range files {
				fmt.Printf("%s\t%s\t%d\n", f.Name, f.Language, len(f.Content))
			}
		},
	}
	var cmdShowChat = &cobra.Command{
		Use:   "chat [room id] [count]",
		Short: "Show chat",
		Long:  `show chat prints the last messages of a room, 50 if no count is given.`,
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			count := 50
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n <= 0 {
					globals.AppLogger.Error("invalid count", "count", args[1])
					return
				}
				count = n
			}
			messages, err := persister.GetChatHistory(args[0], count)
			if err != nil {
				globals.AppLogger.Error("could not get chat history", "error", err)
				return
			}
			printJSON(messages)
		},
	}
	var cmdCat = &cobra.Command{
		Use:   "cat [room id] [filename]",
		Short: "Print a file",
		Long:  `cat writes the stored content of a file to STDOUT.`,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := persister.LoadFile(args[0], args[1])
			if err != nil {
				globals.AppLogger.Error("could not load file", "error", err)
				return
			}
			_, _ = os.Stdout.WriteString(f.Content)
		},
	}
	var cmdDelete = &cobra.Command{
		Use:   "delete",
		Short: "delete room or file",
		Long:  `delete removes a stored room or a single file.`,
	}
	var cmdDeleteRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Delete room",
		Long:  `delete room removes the room with the given id, including its files and chat.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			room := types.Room{Id: args[0]}
			err := persister.DeleteRoom(&room)
			if err != nil {
				globals.AppLogger.Error("could not delete room", "error", err)
				return
			}
		},
	}
	var cmdDeleteFile = &cobra.Command{
		Use:   "file [room id] [filename]",
		Short: "Delete file",
		Long:  `delete file removes a single file of a room.`,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			err := persister.DeleteFile(args[0], args[1])
			if err != nil {
				globals.AppLogger.Error("could not delete file", "error", err)
				return
			}
		},
	}
	var rootCmd = &cobra.Command{Use: "lightspeed-code-admin"}
	rootCmd.AddCommand(cmdShow, cmdCat, cmdDelete)
	cmdShow.AddCommand(cmdShowRooms, cmdShowRoom, cmdShowFiles, cmdShowChat)
	cmdDelete.AddCommand(cmdDeleteRoom, cmdDeleteFile)
	// cobra parses the remaining arguments, the configuration flags are already consumed
	rootCmd.SetArgs(pflag.Args())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
