package dto

// ArticleInput 条文
type ArticleInput struct {
	Title   string `json:"title" binding:"required"`
	Number  string `json:"number" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ArticlesRequest 批量新增条文
type ArticlesRequest struct {
	Articles []ArticleInput `json:"articles" binding:"required,min=1,dive"`
}

// GenerateRequest 根据条文生成单条数据
type GenerateRequest struct {
	ArticleIDs []uint `json:"article_ids" binding:"required,min=1"`
	System     string `json:"system"`
	Hint       string `json:"hint"`
	Model      string `json:"model"`
}

// BatchGenerateRequest 批量生成
type BatchGenerateRequest struct {
	ArticleIDs      []uint `json:"article_ids"`
	BatchSize       int    `json:"batch_size" binding:"required,min=1,max=50"`
	RandomSelection bool   `json:"random_selection"`
	System          string `json:"system"`
	Model           string `json:"model"`
}

// GeneratedCandidate 生成的候选数据，确认后才会保存
type GeneratedCandidate struct {
	Instruction string   `json:"instruction"`
	Input       string   `json:"input"`
	Output      string   `json:"output" binding:"required"`
	System      string   `json:"system"`
	Source      []string `json:"source"`
	ModelName   string   `json:"model_name"`
}

// BatchGenerateResponse 批量生成结果
type BatchGenerateResponse struct {
	Candidates []GeneratedCandidate `json:"candidates"`
	Failed     int                  `json:"failed"`
	Errors     []string             `json:"errors,omitempty"`
}

// ConfirmRequest 确认保存候选数据
type ConfirmRequest struct {
	Candidates []GeneratedCandidate `json:"candidates" binding:"required,min=1,dive"`
}

// SettingsUpdateRequest 更新设置
type SettingsUpdateRequest map[string]interface{}

// GeneratorTestRequest 测试生成服务连接
type GeneratorTestRequest struct {
	BaseURL string `json:"base_url"`
}

// GeneratorTestResponse 测试结果
type GeneratorTestResponse struct {
	BaseURL string   `json:"base_url"`
	OK      bool     `json:"ok"`
	Models  []string `json:"models,omitempty"`
	Error   string   `json:"error,omitempty"`
}
