package majsoul

type PlayerZone int

const (
	ZoneUnknown PlayerZone = iota
	ZoneChina
	ZoneJapan
	ZoneOther
)

func (z PlayerZone) String() string {
	switch z {
	case ZoneChina:
		return "china"
	case ZoneJapan:
		return "japan"
	case ZoneOther:
		return "other"
	default:
		return "unknown"
	}
}

// GetPlayerZone 账号 ID 的高位表示所在服务器
func GetPlayerZone(accountID int) PlayerZone {
	if accountID < 0 {
		return ZoneUnknown
	}
	switch prefix := accountID >> 23; {
	case prefix <= 6:
		return ZoneChina
	case prefix <= 12:
		return ZoneJapan
	case prefix <= 15:
		return ZoneOther
	default:
		return ZoneUnknown
	}
}
