package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/config"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	r, err := newRenderer()
	if err != nil {
		logger.Error("无法加载通知模板", slog.String("error", err.Error()))
		return
	}

	senders := []sender{}

	/**********************************************
	 * 创建邮件客户端，未配置 SMTP 时不发送邮件
	 **********************************************/
	if cfg.Email.SMTP.Host != "" {
		client, err := mail.NewClient(cfg.Email.SMTP.Host,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithSSL(),
			mail.WithPort(cfg.Email.SMTP.Port),
			mail.WithUsername(cfg.Email.SMTP.Username),
			mail.WithPassword(cfg.Email.SMTP.Password),
		)
		if err != nil {
			logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
			return
		}
		defer client.Close()

		// 验证邮件客户端是否连接成功
		clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
		defer cancel()
		if err := client.DialWithContext(clientDialCtx); err != nil {
			logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
			return
		}

		senders = append(senders, &mailSender{client: client, from: cfg.Email.From})
	}

	/**********************************************
	 * 创建 Telegram 客户端，未配置 token 时不发送
	 **********************************************/
	if cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error("无法连接到 Telegram", slog.String("error", err.Error()))
			return
		}
		bot.Debug = cfg.Telegram.Debug
		logger.Info("Telegram 已连接", slog.String("bot", bot.Self.UserName))

		senders = append(senders, &telegramSender{bot: bot})
	}

	if len(senders) == 0 {
		logger.Error("没有配置任何发送方式，请设置 EMAIL_SMTP_HOST 或 TELEGRAM_BOT_TOKEN")
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 声明队列
	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.Queue, // 队列名称
		true,               // 是否持久化
		false,              // 是否自动删除，设置为 false 可以避免没有消费者的时候自动删除队列
		false,              // 是否独占，即是否允许多个消费者访问这个队列
		false,              // 是否不等待，设置为 false，即等待 RabbitMQ 确认队列是否创建成功
		nil,                // 额外参数
	)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 一次只处理一条消息
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("无法设置 QoS", slog.String("error", err.Error()))
		return
	}

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 消费消息
	msgs, err := ch.Consume(
		q.Name, // 队列
		"",     // 消费者标识，设置为空字符串，表示由 RabbitMQ 自动分配
		false,  // 是否自动确认
		false,  // 是否独占队列
		false,  // no-local，RabbitMQ 不支持，必须为 false
		false,  // 是否不等待
		nil,    // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	// 用于关闭 goroutine 的上下文
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}
				handleDelivery(ctx, logger, r, senders, msg)
			}
		}
	}()

	// 等待 CTRL+C 信号
	logger.Info("等待通知...（按 CTRL+C 退出）")
	<-sigChan

	// 优雅退出
	logger.Info("正在关闭 notifier...")
	cancel()
	wg.Wait()
	logger.Info("notifier 已成功关闭")
}

// handleDelivery 无法解析的消息直接丢弃；所有方式都发送失败时重新入队
func handleDelivery(ctx context.Context, logger *slog.Logger, r *renderer, senders []sender, msg amqp.Delivery) {
	content, err := r.render(msg.Body)
	if err != nil {
		logger.Error("无法渲染通知", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}

	delivered, failures := deliver(ctx, senders, content)
	for name, err := range failures {
		logger.Error("通知发送失败", slog.String("channel", name), slog.String("error", err.Error()))
	}

	switch {
	case len(delivered) > 0:
		logger.Info("通知已发送", slog.String("subject", content.Subject), slog.Any("channels", delivered))
		_ = msg.Ack(false)
	case len(failures) > 0:
		_ = msg.Nack(false, true) // 将消息重新入队
	default:
		logger.Warn("通知没有可用的收件方式，已丢弃", slog.String("subject", content.Subject), slog.String("error", errNoRecipient.Error()))
		_ = msg.Ack(false)
	}
}
