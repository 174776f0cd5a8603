package transport

import (
	"context"
	"strings"
	"time"

	"github.com/ziutek/telnet"
)

// dialTelnet runs a scripted login on the device VTY line. Telnet has no
// authentication phase of its own, so a bad credential shows up as a
// re-prompt instead of an error and has to be detected from the dialogue.
func (d *Dialer) dialTelnet(ctx context.Context, p Params) (Conn, error) {
	timeout := time.Duration(d.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	conn, err := telnet.DialTimeout("tcp", p.Addr(), timeout)
	if err != nil {
		return nil, Classify(err)
	}
	conn.SetUnixWriteMode(true)
	tc := &telnetConn{conn: conn, timeout: timeout}
	if err := tc.login(p); err != nil {
		conn.Close()
		return nil, err
	}
	return tc, nil
}

type telnetConn struct {
	conn    *telnet.Conn
	timeout time.Duration
	prompt  string
}

func (c *telnetConn) login(p Params) error {
	banner, err := c.expect("sername:", "ogin:", "assword:")
	if err != nil {
		return Classify(err)
	}
	if strings.Contains(banner, "sername:") || strings.Contains(banner, "ogin:") {
		if err := c.sendLine(p.Username); err != nil {
			return Classify(err)
		}
		if _, err := c.expect("assword:"); err != nil {
			return Classify(err)
		}
	}
	if err := c.sendLine(p.Password); err != nil {
		return Classify(err)
	}
	out, err := c.expect(">", "#", "assword:", "ogin:", "sername:")
	if err != nil {
		return Classify(err)
	}
	if strings.HasSuffix(out, "assword:") || strings.HasSuffix(out, "ogin:") || strings.HasSuffix(out, "sername:") {
		return &ConnectError{Kind: KindAuthentication, Err: errLoginRejected}
	}
	c.prompt = "#"
	if strings.HasSuffix(out, ">") {
		if p.Secret == "" {
			// stay in user exec, show commands still work
			c.prompt = ">"
		} else if err := c.enable(p.Secret); err != nil {
			return err
		}
	}
	// disable paging so expect never stalls on --More--
	if _, err := c.run("terminal length 0"); err != nil {
		return &ConnectError{Kind: KindProtocol, Err: err}
	}
	return nil
}

func (c *telnetConn) enable(secret string) error {
	if err := c.sendLine("enable"); err != nil {
		return Classify(err)
	}
	if _, err := c.expect("assword:"); err != nil {
		return Classify(err)
	}
	if err := c.sendLine(secret); err != nil {
		return Classify(err)
	}
	out, err := c.expect("#", "assword:", ">")
	if err != nil {
		return Classify(err)
	}
	if !strings.HasSuffix(out, "#") {
		return &ConnectError{Kind: KindAuthentication, Err: errEnableRejected}
	}
	return nil
}

func (c *telnetConn) SendConfigSet(ctx context.Context, text string) (string, error) {
	var b strings.Builder
	cmds := append([]string{"configure terminal"}, splitCommands(text)...)
	cmds = append(cmds, "end")
	for _, cmd := range cmds {
		out, err := c.run(cmd)
		if err != nil {
			return b.String(), &IOError{Err: err}
		}
		b.WriteString(out)
	}
	out := b.String()
	if line, found := rejectionLine(out); found {
		return out, &RejectionError{Line: line}
	}
	return out, nil
}

func (c *telnetConn) SendCommand(ctx context.Context, cmd string) (string, error) {
	out, err := c.run(cmd)
	if err != nil {
		return out, &IOError{Err: err}
	}
	return out, nil
}

func (c *telnetConn) Close(ctx context.Context) error {
	return c.conn.Close()
}

// run writes one command and collects output up to the next prompt, with
// the echoed command and the prompt line stripped.
func (c *telnetConn) run(cmd string) (string, error) {
	if err := c.sendLine(cmd); err != nil {
		return "", err
	}
	out, err := c.expect(c.prompt)
	if err != nil {
		return "", err
	}
	lines := strings.Split(out, "\n")
	if len(lines) > 0 && strings.Contains(lines[0], cmd) {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasSuffix(lines[len(lines)-1], c.prompt) {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\r\n"), nil
}

func (c *telnetConn) sendLine(s string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	_, err := c.conn.Write([]byte(s + "\n"))
	return err
}

func (c *telnetConn) expect(delims ...string) (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", err
	}
	data, err := c.conn.ReadUntil(delims...)
	return string(data), err
}

type telnetError string

func (e telnetError) Error() string { return string(e) }

const (
	errLoginRejected  telnetError = "device re-prompted for credentials"
	errEnableRejected telnetError = "device refused enable secret"
)
