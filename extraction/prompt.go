package extraction

import (
	"fmt"
	"strings"
)

const promptTemplate = `你是一个专业的数据分析师。请分析这张仪表盘截图，提取关键指标卡片的信息。

严格按照以下JSON格式返回，不要添加任何解释、注释或Markdown标记：
{"update_time": "...", "comparison_date": "...", "metrics": [{"name": "...", "value": "...", "comparison": "...", "status": "..."}]}

规则：
1. 只提取以下指标：%s。
2. 不要提取以下指标：%s；也不要提取任何不在上述列表中的指标。
3. name 必须与上面列出的指标名称完全一致。
4. value 必须是截图中显示的原始数字（可以带货币符号和千分位逗号）。
5. 如果某个指标的数值被遮挡、尚未加载、显示为"--"或无法看清，value 必须返回空字符串 ""。绝对不要猜测、估算或编造任何数字。
6. comparison 为对比变化（例如 "+5%%"），status 为趋势（"up"、"down" 或 ""）。
7. update_time 为页面上显示的数据更新时间，comparison_date 为对比日期；看不到时返回空字符串。`

// BuildPrompt renders the extraction instruction for the given allow-list.
func BuildPrompt(allow AllowList) string {
	excluded := "无"
	if len(allow.Excluded) > 0 {
		excluded = quoteJoin(allow.Excluded)
	}
	return fmt.Sprintf(promptTemplate, quoteJoin(allow.Allowed), excluded)
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "“" + n + "”"
	}
	return strings.Join(quoted, "、")
}
