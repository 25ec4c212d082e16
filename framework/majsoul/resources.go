package majsoul

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kaguyact/majsoul-api/common/log"
)

const (
	liqiResource   = "res/proto/liqi.json"
	configResource = "config.json"
	gatewayService = "player"
	serverListArgs = "?service=ws-gateway&protocol=ws&ssl=true"
)

var httpClient = &http.Client{
	Timeout:   30 * time.Second,
	Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
}

// ApiResources 连接网关之前需要从资源站获取的全部内容
type ApiResources struct {
	Version   string
	PbVersion string
	// ServerList 网关地址，不带协议头
	ServerList         ServerList
	ProtobufDefinition json.RawMessage
}

type ServerList struct {
	Servers     []string        `json:"servers"`
	Maintenance json.RawMessage `json:"maintenance"`
}

// InMaintenance maintenance 字段存在且不是 null / false / 0 / ""
func (s ServerList) InMaintenance() bool {
	switch strings.TrimSpace(string(s.Maintenance)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

type versionInfo struct {
	Version string `json:"version"`
}

type resVersion struct {
	Res map[string]struct {
		Prefix string `json:"prefix"`
	} `json:"res"`
}

type gameConfig struct {
	IP []struct {
		Name       string          `json:"name"`
		RegionUrls json.RawMessage `json:"region_urls"`
	} `json:"ip"`
}

// RetrieveApiResources 依次获取版本号、资源版本表、liqi.json、config.json 和服务器列表。
// baseURL 为资源站根地址，例如 https://mahjongsoul.game.yo-star.com/
func RetrieveApiResources(ctx context.Context, baseURL string) (*ApiResources, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	var version versionInfo
	if err := getJSON(ctx, baseURL+"version.json?randv="+randv(), &version); err != nil {
		return nil, err
	}
	if version.Version == "" {
		return nil, fmt.Errorf("%w: version.json 中没有版本号", ErrResource)
	}

	var res resVersion
	if err := getJSON(ctx, baseURL+"resversion"+version.Version+".json", &res); err != nil {
		return nil, err
	}
	liqi, ok := res.Res[liqiResource]
	if !ok {
		return nil, fmt.Errorf("%w: 资源版本表中没有 %s", ErrResource, liqiResource)
	}
	conf, ok := res.Res[configResource]
	if !ok {
		return nil, fmt.Errorf("%w: 资源版本表中没有 %s", ErrResource, configResource)
	}

	var definition json.RawMessage
	if err := getJSON(ctx, baseURL+liqi.Prefix+"/"+liqiResource, &definition); err != nil {
		return nil, err
	}

	var config gameConfig
	if err := getJSON(ctx, baseURL+conf.Prefix+"/"+configResource, &config); err != nil {
		return nil, err
	}
	var regionURL string
	for _, ip := range config.IP {
		if ip.Name != gatewayService {
			continue
		}
		u, err := regionURLOf(ip.RegionUrls)
		if err != nil {
			return nil, err
		}
		regionURL = u
		break
	}
	if regionURL == "" {
		return nil, fmt.Errorf("%w: config.json 中没有 %s 网关", ErrResource, gatewayService)
	}

	var servers ServerList
	if err := getJSON(ctx, regionURL+serverListArgs, &servers); err != nil {
		return nil, err
	}
	if servers.InMaintenance() {
		return nil, ErrServerMaintenance
	}

	log.Info("雀魂资源版本 %s, 协议版本 %s, %d 个网关", version.Version, liqi.Prefix, len(servers.Servers))
	return &ApiResources{
		Version:            version.Version,
		PbVersion:          liqi.Prefix,
		ServerList:         servers,
		ProtobufDefinition: definition,
	}, nil
}

// regionURLOf region_urls 可能是 {"mainland": url} 也可能是 [{"url": url}]，优先 mainland
func regionURLOf(raw json.RawMessage) (string, error) {
	var byRegion map[string]json.RawMessage
	if json.Unmarshal(raw, &byRegion) == nil {
		var mainland string
		if m, ok := byRegion["mainland"]; ok && json.Unmarshal(m, &mainland) == nil && mainland != "" {
			return mainland, nil
		}
		// 没有 mainland 时按 "0" 取第一个
		if first, ok := byRegion["0"]; ok {
			return regionURLOf(json.RawMessage("[" + string(first) + "]"))
		}
	}
	var list []struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 && list[0].URL != "" {
		return list[0].URL, nil
	}
	return "", fmt.Errorf("%w: 无法识别 region_urls %s", ErrResource, string(raw))
}

func getJSON(ctx context.Context, rawURL string, out any) error {
	if _, err := url.Parse(rawURL); err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("请求 %s 失败: http %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: 解析 %s 失败: %v", ErrResource, rawURL, err)
	}
	return nil
}

// randv 资源站按该参数绕过缓存
func randv() string {
	return strconv.FormatInt(rand.Int63n(1e17), 10)
}
