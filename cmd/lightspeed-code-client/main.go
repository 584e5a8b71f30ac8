package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/editsync"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/session"
	"github.com/tcriess/lightspeed-code/transport"
	"github.com/tcriess/lightspeed-code/types"
)

// A headless client for lightspeed-code rooms. Lines read from STDIN are chat messages, lines starting with a slash
// are commands (see /help).

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	roomId     = pflag.StringP("room", "r", "", "room to join")
	username   = pflag.StringP("username", "u", "", "display name, a guest name is assigned if empty")
	color      = pflag.String("color", "", "cursor color")
)

const help = `commands:
  /files                  list the files of the room
  /new <name> [language]  create a file and open it
  /open <name>            open a file
  /mv <name> <new name>   rename a file
  /rm <name>              delete a file
  /cat                    print the current file
  /type <text>            replace the current file with text (\n for newlines)
  /append <text>          append a line to the current file
  /cursor <line> <column> move the cursor
  /select <line> <column> <line> <column>
                          select a range of the current file
  /lang <language>        change the language of the current file
  /save                   save the current file
  /theme <theme>          change the theme of the room
  /run [stdin]            execute the current file
  /ai <kind>              ask the assistant (suggestion, review, explain)
  /analyze                metrics and suggestions for the current file
  /users                  list the members of the room
  /whisper <user> <text>  chat with a single user
  /quit                   leave the room and exit`

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

	if *roomId == "" {
		panic("no room given")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
	}()

	clientCfg := globalConfig.ClientConfig
	ch := transport.New(transport.Options{
		URL:         clientCfg.URL,
		MaxInterval: clientCfg.ReconnectMaxInterval,
		ReadLimit:   clientCfg.MaxMessageSize,
	})
	buffer := editsync.NewBuffer()
	s := session.New(session.Options{
		Room:          *roomId,
		Username:      *username,
		Color:         *color,
		Transport:     ch,
		Editor:        buffer,
		View:          &printView{},
		AutosaveDelay: clientCfg.AutosaveDelay,
		EditRate:      clientCfg.EditRate,
		EditBurst:     clientCfg.EditBurst,
	})

	go func() {
		_ = ch.Run(ctx)
	}()
	go readCommands(ctx, cancel, s, buffer)

	err = s.Run(ctx, ch.Events())
	globals.AppLogger.Debug("session stopped", "error", err)
}

// readCommands parses STDIN and posts every command to the session loop.
func readCommands(ctx context.Context, cancel context.CancelFunc, s *session.Session, buffer *editsync.Buffer) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line == "/quit" {
			s.Post(func() {
				_ = s.Leave()
				cancel()
			})
			return
		}
		if line == "/help" {
			fmt.Println(help)
			continue
		}
		s.Post(func() {
			if err := runCommand(s, buffer, line); err != nil {
				fmt.Println("error:", err)
			}
		})
		if ctx.Err() != nil {
			return
		}
	}
	// EOF
	s.Post(func() {
		_ = s.Leave()
		cancel()
	})
}

func runCommand(s *session.Session, buffer *editsync.Buffer, line string) error {
	if !strings.HasPrefix(line, "/") {
		return s.SendChat(line, "")
	}
	cmd, rest := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		cmd, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	args := strings.Fields(rest)
	switch cmd {
	case "/files":
		for _, f := range s.Files() {
			marker := " "
			if f.Name == s.ActiveFile() {
				marker = "*"
			}
			fmt.Printf("%s %s (%s, %d bytes)\n", marker, f.Name, f.Language, len(f.Content))
		}
		return nil
	case "/new":
		if len(args) < 1 {
			return fmt.Errorf("usage: /new <name> [language]")
		}
		lang := types.Language("")
		if len(args) > 1 {
			lang = types.Language(args[1])
		}
		return s.CreateFile(args[0], lang)
	case "/open":
		if len(args) != 1 {
			return fmt.Errorf("usage: /open <name>")
		}
		return s.OpenFile(args[0])
	case "/mv":
		if len(args) != 2 {
			return fmt.Errorf("usage: /mv <name> <new name>")
		}
		return s.RenameFile(args[0], args[1])
	case "/rm":
		if len(args) != 1 {
			return fmt.Errorf("usage: /rm <name>")
		}
		return s.DeleteFile(args[0])
	case "/cat":
		if s.CurrentFile() == "" {
			return fmt.Errorf("no file open")
		}
		fmt.Println(buffer.Value())
		return nil
	case "/type":
		if s.CurrentFile() == "" {
			return fmt.Errorf("no file open")
		}
		buffer.Type(strings.Replace(rest, `\n`, "\n", -1))
		return nil
	case "/append":
		if s.CurrentFile() == "" {
			return fmt.Errorf("no file open")
		}
		text := buffer.Value()
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		buffer.Type(text + rest + "\n")
		return nil
	case "/cursor":
		if len(args) != 2 {
			return fmt.Errorf("usage: /cursor <line> <column>")
		}
		l, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		col, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return s.MoveCursor(types.Cursor{Line: l, Column: col})
	case "/select":
		if len(args) != 4 {
			return fmt.Errorf("usage: /select <line> <column> <line> <column>")
		}
		n := make([]int, 4)
		for i, arg := range args {
			v, err := strconv.Atoi(arg)
			if err != nil {
				return err
			}
			n[i] = v
		}
		return s.SetSelection(types.Selection{Start: types.Cursor{Line: n[0], Column: n[1]}, End: types.Cursor{Line: n[2], Column: n[3]}})
	case "/analyze":
		_, err := s.AnalyzeCode()
		return err
	case "/lang":
		if len(args) != 1 {
			return fmt.Errorf("usage: /lang <language>")
		}
		return s.SetLanguage(types.Language(args[0]))
	case "/save":
		return s.SaveFile()
	case "/theme":
		if len(args) != 1 {
			return fmt.Errorf("usage: /theme <theme>")
		}
		settings := s.Settings()
		settings.Theme = args[0]
		return s.UpdateSettings(settings)
	case "/run":
		_, err := s.ExecuteCode(strings.Replace(rest, `\n`, "\n", -1))
		return err
	case "/ai":
		if len(args) != 1 {
			return fmt.Errorf("usage: /ai <suggestion|review|explain>")
		}
		_, err := s.AskAI(args[0])
		return err
	case "/users":
		for _, m := range s.Users() {
			me := ""
			if m.ConnectionId == s.You().ConnectionId {
				me = " (you)"
			}
			fmt.Printf("%s%s at %d:%d\n", m.Username, me, m.Cursor.Line, m.Cursor.Column)
		}
		return nil
	case "/whisper":
		if len(args) < 2 {
			return fmt.Errorf("usage: /whisper <user> <text>")
		}
		text := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		return s.SendChat(text, fmt.Sprintf("Target.Username == %q", args[0]))
	}
	return fmt.Errorf("unknown command %s, try /help", cmd)
}

// printView writes everything the session reports to STDOUT.
type printView struct {
	session.NopView
}

func (v *printView) StatusChanged(status session.Status) {
	fmt.Printf("[%s]\n", status)
}

func (v *printView) FilesChanged(files []types.File, activeFile string) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	fmt.Printf("[files] %s (active: %s)\n", strings.Join(names, ", "), activeFile)
}

func (v *printView) CurrentFileChanged(file types.File, ok bool) {
	if !ok {
		fmt.Println("[editor] closed")
		return
	}
	fmt.Printf("[editor] %s (%s)\n", file.Name, file.Language)
}

func (v *printView) UsersChanged(users []types.Member, change types.PresenceMessage) {
	fmt.Printf("[users] %s\n", strings.Join(types.Usernames(users), ", "))
}

func (v *printView) SettingsChanged(settings types.RoomSettings) {
	fmt.Printf("[settings] theme %s, font size %d, tab size %d, autosave %t\n", settings.Theme, settings.FontSize, settings.TabSize, settings.AutoSave)
}

func (v *printView) ChatReceived(msg types.ChatMessage) {
	fmt.Printf("%s <%s> %s\n", msg.Timestamp.Local().Format("15:04:05"), msg.Username, msg.Message)
}

func (v *printView) RemoteCursor(msg types.RemoteCursorMessage) {
	globals.AppLogger.Trace("remote cursor", "username", msg.Username, "line", msg.Line, "column", msg.Column)
}

func (v *printView) RemoteSelection(msg types.RemoteSelectionMessage) {
	globals.AppLogger.Trace("remote selection", "username", msg.Username, "file", msg.Filename, "start", msg.Selection.Start, "end", msg.Selection.End)
}

func (v *printView) AnalysisResult(msg types.AnalysisResultMessage) {
	a := msg.Analysis
	fmt.Printf("[analysis %s] %d lines (%d code, %d comment, %d blank), complexity %d (%s)\n",
		msg.Filename, a.TotalLines, a.CodeLines, a.CommentLines, a.BlankLines, a.Complexity, a.ComplexityRating)
	for _, sg := range msg.Suggestions {
		fmt.Printf("  %s: %s\n", sg.Type, sg.Message)
	}
}

func (v *printView) CodeOutput(msg types.CodeOutputMessage) {
	fmt.Printf("[output %s, exit code %d]\n%s\n", msg.Filename, msg.ExitCode, msg.Output)
}

func (v *printView) AIResponse(msg types.AIResponseMessage) {
	fmt.Printf("[ai %s %s]\n%s\n", msg.Kind, msg.Filename, msg.Content)
}

func (v *printView) Notify(message string) {
	fmt.Printf("* %s\n", message)
}
