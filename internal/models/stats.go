package models

// Stats is the dashboard summary.
type Stats struct {
	TotalPosts       int `json:"total_posts"`
	PublishedPosts   int `json:"published_posts"`
	TotalCategories  int `json:"total_categories"`
	TotalComments    int `json:"total_comments"`
	ApprovedComments int `json:"approved_comments"`
}
