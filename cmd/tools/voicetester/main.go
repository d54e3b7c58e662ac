package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/emotalk/backend/internal/analysis/emotion"
	"github.com/zhouzirui/emotalk/backend/internal/config"
	speechmodel "github.com/zhouzirui/emotalk/backend/internal/model/speech"
	"github.com/zhouzirui/emotalk/backend/internal/service/speech"
	"github.com/zhouzirui/emotalk/backend/pkg/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] 无法加载 .env，改用系统环境变量: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}
	if err := log.Init("debug", "console", ""); err != nil {
		fmt.Fprintf(os.Stderr, "日志初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	text := flag.String("text", "", "待合成的回复文本")
	user := flag.String("user", "", "用户原话，用于推断情绪")
	voice := flag.String("voice", string(speechmodel.VoiceFemale), "语音模式: female 或 male")
	outputPath := flag.String("out", "", "输出音频文件路径，默认使用 SPEECH_OUTPUT_FILE")
	noEmotion := flag.Bool("no-emotion", false, "关闭情绪参数")
	dryRun := flag.Bool("dry-run", false, "只打印情绪分析结果，不调用合成接口")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatalf("需要通过 -text 提供待合成文本")
	}

	decision := emotion.Analyze(*user, *text)
	log.Infow("emotion decision", "emotion", decision.Emotion, "scale", decision.Scale, "score", decision.Score)
	if *dryRun {
		return
	}

	if !cfg.Speech.Enabled {
		log.Fatalf("语音服务未启用，请先配置 SPEECH_APP_ID 与 SPEECH_ACCESS_TOKEN")
	}

	mode, err := speechmodel.ParseVoiceMode(*voice)
	if err != nil || mode == speechmodel.VoiceNone {
		log.Fatalf("无效的语音模式 %q", *voice)
	}

	if *outputPath != "" {
		cfg.Speech.OutputFile = *outputPath
	}
	if *noEmotion {
		cfg.Speech.EmotionEnabled = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc := speech.NewService(cfg.Speech, nil)
	start := time.Now()
	audio, err := svc.Speak(ctx, mode, *user, *text)
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	log.Infof("TTS 合成成功: 输出文件 %s, speaker=%s, emotion=%s, 耗时=%s",
		audio.File, audio.Speaker, audio.Emotion, time.Since(start).Round(time.Millisecond))
}
