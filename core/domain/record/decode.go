package record

import (
	"fmt"
	"strings"

	"github.com/kaguyact/majsoul-api/framework/protocol"
)

const (
	typeDetailRecords = "lq.GameDetailRecords"
	// actionRecord GameAction.type 为 1 时 result 是一条牌谱记录
	actionRecord = 1
)

type gameAction struct {
	Type   int    `json:"type"`
	Result []byte `json:"result"`
}

type detailRecords struct {
	Records [][]byte     `json:"records"`
	Version int          `json:"version"`
	Actions []gameAction `json:"actions"`
}

// DecodeDetailRecords 解出 ResGameRecord.data，它是 Wrapper 包装的 GameDetailRecords。
// 旧版牌谱使用 records，新版只有 actions，其中 type 为 1 的 result 是记录。
func DecodeDetailRecords(codec *protocol.Codec, data []byte) ([]Record, error) {
	name, inner, err := protocol.UnwrapMessage(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimPrefix(name, ".") != typeDetailRecords {
		return nil, fmt.Errorf("%w: 牌谱数据类型为 %q", protocol.ErrProtocol, name)
	}
	var detail detailRecords
	if err := codec.Decode(typeDetailRecords, inner, &detail); err != nil {
		return nil, err
	}

	raws := detail.Records
	if len(raws) == 0 {
		for _, a := range detail.Actions {
			if a.Type == actionRecord && len(a.Result) > 0 {
				raws = append(raws, a.Result)
			}
		}
	}

	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		r, err := DecodeRecord(codec, raw)
		if err != nil {
			return nil, fmt.Errorf("第 %d 条记录: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// DecodeRecord 解出一条 Wrapper 包装的记录，不认识的类型返回 *Unknown
func DecodeRecord(codec *protocol.Codec, wrapped []byte) (Record, error) {
	name, data, err := protocol.UnwrapMessage(wrapped)
	if err != nil {
		return nil, err
	}

	var r Record
	switch strings.TrimPrefix(name, ".") {
	case TypeNewRound:
		r = &NewRound{}
	case TypeDiscardTile:
		r = &DiscardTile{}
	case TypeDealTile:
		r = &DealTile{}
	case TypeAnGangAddGang:
		r = &AnGangAddGang{}
	case TypeChiPengGang:
		r = &ChiPengGang{}
	case TypeNoTile:
		r = &NoTile{}
	case TypeHule:
		r = &Hule{}
	default:
		return &Unknown{Name: name, Raw: data}, nil
	}
	if err := codec.Decode(name, data, r); err != nil {
		return nil, err
	}
	return r, nil
}
