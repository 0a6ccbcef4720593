// Package model holds the campus records cached locally and exchanged with
// the remote API.
package model

import "time"

// NewsItem is a campus news post
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	Timestamp   time.Time `json:"timestamp"`
	// Category is one of event, announcement, achievement
	Category  string `json:"category"`
	Author    string `json:"author"`
	ReadCount int    `json:"readCount"`
}

// Club is a student club as listed by the API
type Club struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	MemberCount  int    `json:"memberCount"`
	IsSubscribed bool   `json:"isSubscribed"`
	ImageURL     string `json:"imageUrl,omitempty"`
	// Category is one of academic, sports, cultural, technical, social
	Category string   `json:"category"`
	Updates  []Update `json:"updates"`
}

// Update is a post on a club's feed
type Update struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}
