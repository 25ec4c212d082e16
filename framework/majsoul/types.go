package majsoul

// Contest 比赛信息，时间单位为毫秒
type Contest struct {
	MajsoulID         int    `json:"majsoulId"`
	MajsoulFriendlyID int    `json:"majsoulFriendlyId"`
	Name              string `json:"name"`
	CreatedTime       int64  `json:"createdTime"`
	StartTime         int64  `json:"startTime"`
	FinishTime        int64  `json:"finishTime"`
}

type Player struct {
	MajsoulID int    `json:"majsoulId"`
	Nickname  string `json:"nickname"`
}

// Account 当前登录的账号
type Account struct {
	AccountID int    `json:"accountId"`
	Nickname  string `json:"nickname"`
}

type Passport struct {
	Uid         string
	AccessToken string
}

// ContestSystemMessage 比赛房间的系统消息
type ContestSystemMessage struct {
	UniqueID int    `json:"unique_id"`
	Type     int    `json:"type"`
	UUID     string `json:"uuid"`
}

// 以下为 Lobby 方法的请求和响应，字段名与 liqi.json 一致

type clientDeviceInfo struct {
	Platform     string `json:"platform"`
	Hardware     string `json:"hardware"`
	OS           string `json:"os"`
	OSVersion    string `json:"os_version"`
	IsBrowser    bool   `json:"is_browser"`
	Software     string `json:"software"`
	SalePlatform string `json:"sale_platform"`
}

type clientVersionInfo struct {
	Resource string `json:"resource"`
}

type reqOauth2Auth struct {
	Type                int    `json:"type"`
	Code                string `json:"code"`
	Uid                 string `json:"uid"`
	ClientVersionString string `json:"client_version_string"`
}

type resOauth2Auth struct {
	AccessToken string `json:"access_token"`
}

type reqOauth2Check struct {
	Type        int    `json:"type"`
	AccessToken string `json:"access_token"`
}

type resOauth2Check struct {
	HasAccount bool `json:"has_account"`
}

type reqOauth2Login struct {
	Type                int               `json:"type"`
	AccessToken         string            `json:"access_token"`
	Reconnect           bool              `json:"reconnect"`
	Device              clientDeviceInfo  `json:"device"`
	RandomKey           string            `json:"random_key"`
	ClientVersion       clientVersionInfo `json:"client_version"`
	CurrencyPlatforms   []int             `json:"currency_platforms"`
	ClientVersionString string            `json:"client_version_string"`
}

type resLogin struct {
	AccountID int `json:"account_id"`
	Account   *struct {
		AccountID int    `json:"account_id"`
		Nickname  string `json:"nickname"`
	} `json:"account"`
}

type contestAbstract struct {
	UniqueID    int    `json:"unique_id"`
	ContestID   int    `json:"contest_id"`
	ContestName string `json:"contest_name"`
	CreateTime  int64  `json:"create_time"`
	StartTime   int64  `json:"start_time"`
	FinishTime  int64  `json:"finish_time"`
}

type resFetchContest struct {
	ContestInfo *contestAbstract `json:"contest_info"`
}

type reqContestGameRecords struct {
	UniqueID  int `json:"unique_id"`
	LastIndex int `json:"last_index,omitempty"`
}

type resContestGameRecords struct {
	NextIndex  int `json:"next_index"`
	RecordList []struct {
		UUID string `json:"uuid"`
	} `json:"record_list"`
}

type reqSearchAccount struct {
	Pattern string `json:"pattern"`
}

type resSearchAccount struct {
	DecodeID int `json:"decode_id"`
}

type reqMultiAccountID struct {
	AccountIDList []int `json:"account_id_list"`
}

type resMultiAccountBrief struct {
	Players []struct {
		AccountID int    `json:"account_id"`
		Nickname  string `json:"nickname"`
	} `json:"players"`
}

type reqGameRecord struct {
	GameUUID            string `json:"game_uuid"`
	ClientVersionString string `json:"client_version_string"`
}

type reqUniqueID struct {
	UniqueID int `json:"unique_id"`
}

type reqHeartbeat struct {
	NoOperationCounter int `json:"no_operation_counter"`
}
