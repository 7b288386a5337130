package models

// NoticeType categorises notices on the dashboards.
type NoticeType string

const (
	NoticeTypeHostel   NoticeType = "hostel"
	NoticeTypeAcademic NoticeType = "academic"
	NoticeTypeGeneral  NoticeType = "general"
)

// Notice is an entry in the persisted notices list.
type Notice struct {
	ID      int        `json:"id"`
	Type    NoticeType `json:"type"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Date    string     `json:"date"`
}

// CreateNoticeRequest is posted by wardens and admins.
type CreateNoticeRequest struct {
	Type    NoticeType `json:"type" validate:"required,oneof=hostel academic general"`
	Title   string     `json:"title" validate:"required,max=200"`
	Content string     `json:"content" validate:"required,max=4000"`
	Date    string     `json:"date" validate:"omitempty,datetime=2006-01-02"`
}
