package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient は推論APIクライアントとCanaryプローブが共用するHTTPクライアントを作成します。
//
// 推論API呼び出しは画像ペイロードを含み応答に数十秒かかることがあるため、
// リクエスト全体のタイムアウトは呼び出し元が用途に応じて指定します。
// 接続確立・TLSハンドシェイクには個別に短いタイムアウトを設定し、
// 応答しないエンドポイントで接続が滞留しないようにします。
//
// http.DefaultClientにはタイムアウトがないため使用しません。
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
