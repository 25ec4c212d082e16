package transfer

// 发布到 nats 的路由，完整 subject 为 <配置的前缀>.<路由>
const GameParsed = "game.parsed"              // 牌谱解析完成
const GameAborted = "game.aborted"            // 牌谱无法解析
const ContestSystemMessage = "contest.system" // 比赛系统消息
