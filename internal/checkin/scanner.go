package checkin

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

type scanResult struct {
	code string
	err  error
}

// pump читает коды в фоне; Next ждёт их вместе с ctx.
type pump struct {
	ch chan scanResult
}

func (p *pump) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-p.ch:
		if !ok {
			return "", io.EOF
		}
		return r.code, r.err
	}
}

// DeviceScanner читает коды построчно из USB/serial-устройства или stdin ("-").
// Сканеры-клавиатуры отдают код и перевод строки.
type DeviceScanner struct {
	Path string

	f    *os.File
	p    *pump
	done chan struct{}
	once sync.Once
}

func NewDeviceScanner(path string) *DeviceScanner { return &DeviceScanner{Path: path} }

// Open можно вызывать снова после Close: каждое открытие закрывается своим Close.
func (d *DeviceScanner) Open(context.Context) error {
	f := os.Stdin
	if d.Path != "" && d.Path != "-" {
		var err error
		if f, err = os.Open(d.Path); err != nil {
			return err
		}
	}
	d.f = f
	d.p = &pump{ch: make(chan scanResult)}
	d.done = make(chan struct{})
	d.once = sync.Once{}
	go readLines(f, d.p, d.done)
	return nil
}

func readLines(r io.Reader, p *pump, done <-chan struct{}) {
	defer close(p.ch)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case p.ch <- scanResult{code: sc.Text()}:
		case <-done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		select {
		case p.ch <- scanResult{err: err}:
		case <-done:
		}
	}
}

func (d *DeviceScanner) Next(ctx context.Context) (string, error) {
	if d.p == nil {
		return "", errors.New("scanner is not open")
	}
	return d.p.next(ctx)
}

// Close освобождает устройство. stdin не закрываем.
func (d *DeviceScanner) Close() error {
	var err error
	d.once.Do(func() {
		if d.done != nil {
			close(d.done)
		}
		if d.f != nil && d.f != os.Stdin {
			err = d.f.Close()
		}
	})
	return err
}

// WSConn: то, что нужно от websocket-соединения киоска с камерой.
type WSConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
}

// cameraControl: команда браузеру включить или выключить камеру.
type cameraControl struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// ConnScanner получает коды из браузера, {"code":"..."} или просто текст.
// Камера на стороне клиента; Open/Close посылают ему start/stop.
type ConnScanner struct {
	conn WSConn
	p    *pump
	done chan struct{}
	once sync.Once
}

func NewConnScanner(conn WSConn) *ConnScanner { return &ConnScanner{conn: conn} }

func (c *ConnScanner) Open(context.Context) error {
	if err := c.conn.WriteJSON(cameraControl{Type: "camera", Action: "start"}); err != nil {
		return err
	}
	c.p = &pump{ch: make(chan scanResult)}
	c.done = make(chan struct{})
	go c.read()
	return nil
}

func (c *ConnScanner) read() {
	defer close(c.p.ch)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			// клиент ушёл: для сессии это конец источника
			return
		}
		code := parseCodeMessage(msg)
		if code == "" {
			continue
		}
		select {
		case c.p.ch <- scanResult{code: code}:
		case <-c.done:
			return
		}
	}
}

func parseCodeMessage(msg []byte) string {
	s := strings.TrimSpace(string(msg))
	if strings.HasPrefix(s, "{") {
		var m struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return ""
		}
		return strings.TrimSpace(m.Code)
	}
	return s
}

func (c *ConnScanner) Next(ctx context.Context) (string, error) {
	if c.p == nil {
		return "", errors.New("scanner is not open")
	}
	return c.p.next(ctx)
}

func (c *ConnScanner) Close() error {
	var err error
	c.once.Do(func() {
		if c.done != nil {
			close(c.done)
		}
		err = c.conn.WriteJSON(cameraControl{Type: "camera", Action: "stop"})
	})
	return err
}
