package heartbeat

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"VisionFusion/config"
	"VisionFusion/logger"
	"VisionFusion/pipeline"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const TimeOutSeconds = 5

type RegisterRequest struct {
	Id        string  `json:"id"`
	SessionId string  `json:"sessionId"`
	IP        string  `json:"ip"`
	Port      int     `json:"port"`
	State     string  `json:"state"`
	FPS       float64 `json:"fps"`
	TimeStamp int64   `json:"timestamp"`
}

type RegisterResponse struct {
	Id      string `json:"id"`
	Success bool   `json:"success"`
}

type StatusProvider interface {
	Status() pipeline.Status
}

func GetOutboundIP() (string, error) {
	// 8.8.8.8 是 Google DNS，这里只是为了建立路由路径得到本地出口 IP
	// 实际并没有真正的物理连接，所以不需要联网也可以（只要有路由表）
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP.String(), nil
}

// Sender registers this node with the registry server on a fixed interval.
type Sender struct {
	ID       string
	url      string
	ip       string
	port     int
	interval time.Duration
	status   StatusProvider
	client   *resty.Client
}

func New(cfg config.RegistryConfig, ip string, apiPort int, status StatusProvider) *Sender {
	return &Sender{
		ID:       uuid.NewString(),
		url:      fmt.Sprintf("http://%s:%d/api/register", cfg.Host, cfg.Port),
		ip:       ip,
		port:     apiPort,
		interval: time.Duration(cfg.IntervalSeconds) * time.Second,
		status:   status,
		client:   resty.New().SetTimeout(TimeOutSeconds * time.Second), // 总超时
	}
}

// Send posts one registration. Errors are logged and returned, never panicked.
func (s *Sender) Send(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("heartbeat panic: %v", r)
			logger.Log().Error("heartbeat panic recovered", zap.Any("recovered", r))
		}
	}()
	st := s.status.Status()
	var respBody RegisterResponse
	reqBody := RegisterRequest{
		Id:        s.ID,
		SessionId: st.SessionID,
		IP:        s.ip,
		Port:      s.port,
		State:     st.State,
		FPS:       st.FPS,
		TimeStamp: time.Now().Unix(),
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).     // 可以直接传 struct，resty 会 JSON 编码
		SetResult(&respBody). // 2xx 自动反序列化到 respBody
		Post(s.url)
	if err != nil {
		logger.Log().Warn("heartbeat request error", zap.String("url", s.url), zap.Error(err))
		return err
	}
	// 检查 HTTP 状态码
	if resp.IsError() {
		err = fmt.Errorf("registry returned %s", resp.Status())
		logger.Log().Warn("heartbeat rejected", zap.String("status", resp.Status()), zap.String("body", resp.String()))
		return err
	}
	return nil
}

// Run sends immediately and then every interval until ctx is done.
func (s *Sender) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	_ = s.Send(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Log().Info("heartbeat context cancelled, exiting goroutine")
			return
		case <-ticker.C:
			_ = s.Send(ctx)
		}
	}
}
