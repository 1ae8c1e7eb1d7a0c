package session

import (
	"context"

	"maxclient/transport/mobile"
	"maxclient/wire"
)

// Connect establishes the transport, installs the default TLS crypto
// provider on first call, spawns the reader and keepalive tasks,
// refreshes session_id, stores the device identifiers, then issues the
// handshake and returns its response (spec.md section 4.2).
func (c *Client) Connect(ctx context.Context, deviceID, mtInstance string, isMobile bool) (wire.Response, error) {
	mobile.InstallDefaultCryptoProvider()

	var dialer Dialer
	if isMobile {
		dialer = c.mobileDialer
	} else {
		dialer = c.webDialer
	}

	conn, err := dialer.Dial(ctx)
	if err != nil {
		return wire.Response{}, err
	}
	writer, reader := conn.Split()

	shutdownCh := make(chan struct{})

	c.mu.Lock()
	c.state.writer = writer
	c.state.deviceID = deviceID
	c.state.mtInstance = mtInstance
	c.state.sessionID = nowMillis()
	c.state.shutdownCh = shutdownCh
	c.mu.Unlock()

	c.readerWG.Add(1)
	go c.readTask(reader, shutdownCh)
	go c.keepaliveTask(shutdownCh)

	return c.Request(ctx, handshakeOpcode, handshakePayload(deviceID, mtInstance, isMobile))
}

// Disconnect fires shutdown, drops the writer, clears pending (each slot
// completes with a connection-closed error), clears tokens and user_id,
// resets seq to 0, refreshes session_id (spec.md section 4.2).
func (c *Client) Disconnect() {
	c.mu.Lock()
	shutdownCh := c.state.shutdownCh
	writer := c.state.writer
	c.state.writer = nil
	c.state.token = ""
	c.state.tempToken = ""
	c.state.hasUserID = false
	c.state.userID = 0
	c.state.seq = 0
	c.state.sessionID = nowMillis()
	c.state.shutdownCh = nil
	c.mu.Unlock()

	if shutdownCh != nil {
		close(shutdownCh)
	}
	if writer != nil {
		_ = writer.Close()
	}

	c.drainPending()
	c.readerWG.Wait()
}

func handshakePayload(deviceID, mtInstance string, isMobile bool) wire.Value {
	if isMobile {
		userAgent := wire.Map(
			wire.KV("deviceType", wire.String("ANDROID")),
			wire.KV("appVersion", wire.String("25.10.0")),
			wire.KV("osVersion", wire.String("Android 13")),
			wire.KV("timezone", wire.String("GMT")),
			wire.KV("screen", wire.String("130dpi 130dpi 600x874")),
			wire.KV("pushDeviceType", wire.String("GCM")),
			wire.KV("locale", wire.String("ru")),
			wire.KV("buildNumber", wire.Int(6401)),
			wire.KV("deviceName", wire.String("unknown Generic Android-x86_64")),
			wire.KV("deviceLocale", wire.String("ru")),
		)
		return wire.Map(
			wire.KV("clientSessionId", wire.Int(1)),
			wire.KV("mt_instanceid", wire.String(mtInstance)),
			wire.KV("deviceId", wire.String(deviceID)),
			wire.KV("userAgent", userAgent),
		)
	}

	userAgent := wire.Map(
		wire.KV("deviceType", wire.String("WEB")),
		wire.KV("locale", wire.String("ru")),
		wire.KV("deviceLocale", wire.String("ru")),
		wire.KV("osVersion", wire.String("Linux")),
		wire.KV("deviceName", wire.String("Chrome")),
		wire.KV("headerUserAgent", wire.String("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36")),
		wire.KV("appVersion", wire.String("25.10.13")),
		wire.KV("screen", wire.String("1080x1920 1.0x")),
		wire.KV("timezone", wire.String("Europe/Moscow")),
	)
	return wire.Map(
		wire.KV("deviceId", wire.String(deviceID)),
		wire.KV("userAgent", userAgent),
	)
}
