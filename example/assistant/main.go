package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/gofrs/uuid/v5"

	"github.com/tbxark/formcollect"
	"github.com/tbxark/formcollect/store"
	"github.com/tbxark/formcollect/tools"
	"github.com/tbxark/formcollect/types"
)

const instruction = `你是一个表单填写助手。先用 get_forms 找到用户想填写的表单，再用 get_form_fields 了解需要收集的字段。
每次向用户询问少量字段，用 collect_field_data 提交收集到的值，并在之后的每次调用中携带全部已收集的 form_data。
遇到表格或子表单时，按照返回的作用域填写 parent_path。所有必填字段完成后，询问可选字段，
用 confirm_form_submission 展示汇总，得到用户明确确认后才调用 submit_completed_form。`

func main() {
	conf := flag.String("config", "config.json", "path to config file")
	flag.Parse()
	config, err := loadConfig(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	err = startApp(context.Background(), config)
	if err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(ctx context.Context, config *Config) error {
	slog.SetLogLoggerLevel(slog.LevelInfo)
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  config.APIKey,
		Model:   config.Model,
		BaseURL: config.BaseURL,
	})
	if err != nil {
		return err
	}
	forms := store.NewFormRegistry()
	if _, err := forms.LoadDir(config.FormsDir); err != nil {
		return err
	}
	submissions := store.NewSubmissionStore(store.NewMemoryCache[*types.Submission](), "")
	handlers := tools.New(formcollect.New(), forms, submissions)
	formTools, err := handlers.EinoTools()
	if err != nil {
		return err
	}
	assistant, err := adk.NewChatModelAgent(ctx, &adk.ChatModelAgentConfig{
		Name:        "FormAssistant",
		Description: "An agent that helps users fill and submit forms via conversation",
		Instruction: instruction,
		Model:       cm,
		ToolsConfig: adk.ToolsConfig{
			ToolsNodeConfig: compose.ToolsNodeConfig{Tools: formTools},
		},
	})
	if err != nil {
		return err
	}
	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent: assistant,
	})
	historyStore := NewHistoryStore(store.NewMemoryCache[[]*schema.Message](), KeepSystemLastNTrimmer{N: config.HistorySize})
	session := uuid.Must(uuid.NewV4()).String()

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("欢迎使用表单助手，请输入您的需求（如：我要登记一个新联系人）：")
	for {
		fmt.Print("用户: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("输入错误或已结束。退出。")
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		history, rErr := historyStore.Append(ctx, session, schema.UserMessage(input))
		if rErr != nil {
			return rErr
		}
		iter := runner.Run(ctx, history)
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			if event.Output == nil || event.Output.MessageOutput == nil {
				continue
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			if _, apErr := historyStore.Append(ctx, session, msg); apErr != nil {
				return apErr
			}
			if msg.Role == schema.Assistant && msg.Content != "" {
				fmt.Printf("\n助手: %v\n======\n", msg.Content)
			}
		}
	}
	return nil
}
