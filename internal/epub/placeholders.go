package epub

import (
	"fmt"
	"strings"
)

// Placeholders holds the display strings substituted when a book omits a value.
type Placeholders struct {
	Title          string
	Author         string
	Language       string
	Publisher      string
	Description    string
	ChapterFormat  string // fmt verb %d receives the 1-based position
	UnknownChapter string
	ImageAlt       string
	ImageFailed    string // fmt verb %s receives the alt text
	ImageText      string
	EmptyContent   string
	ContentFailed  string
}

// EnglishPlaceholders is the default placeholder set.
var EnglishPlaceholders = Placeholders{
	Title:          "Unknown Title",
	Author:         "Unknown Author",
	Language:       "Unknown Language",
	Publisher:      "Unknown Publisher",
	Description:    "No Description",
	ChapterFormat:  "Chapter %d",
	UnknownChapter: "Unknown Chapter",
	ImageAlt:       "Image",
	ImageFailed:    "Image failed to load: %s",
	ImageText:      "[Image failed to load]",
	EmptyContent:   "Content is empty",
	ContentFailed:  "Content could not be parsed",
}

// ChinesePlaceholders matches the strings of the original reader application.
var ChinesePlaceholders = Placeholders{
	Title:          "未知标题",
	Author:         "未知作者",
	Language:       "未知语言",
	Publisher:      "未知出版社",
	Description:    "未知描述",
	ChapterFormat:  "章节%d",
	UnknownChapter: "未知章节",
	ImageAlt:       "图片",
	ImageFailed:    "图片加载失败: %s",
	ImageText:      "[图片加载失败]",
	EmptyContent:   "内容为空",
	ContentFailed:  "内容解析失败",
}

// PlaceholdersFor returns the placeholder set for a locale ("en", "zh").
func PlaceholdersFor(locale string) (Placeholders, error) {
	switch strings.ToLower(locale) {
	case "", "en":
		return EnglishPlaceholders, nil
	case "zh", "zh-cn":
		return ChinesePlaceholders, nil
	default:
		return Placeholders{}, fmt.Errorf("unsupported locale %q", locale)
	}
}

// ChapterTitle synthesizes the title of the n-th (1-based) chapter.
func (p Placeholders) ChapterTitle(n int) string {
	return fmt.Sprintf(p.ChapterFormat, n)
}

// WithDefaults returns p, or EnglishPlaceholders when p is the zero value.
func (p Placeholders) WithDefaults() Placeholders {
	if p.Title == "" {
		return EnglishPlaceholders
	}
	return p
}
