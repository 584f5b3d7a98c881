package models

import "gorm.io/gorm"

type CourseComment struct {
	gorm.Model
	CourseID  uint
	UserID    uint
	UserName  string
	UserImage string
	Text      string
	Rating    int `gorm:"check:rating>=0 AND rating<=5"`
	Replies   []CourseCommentReply `gorm:"foreignKey:CommentID"`
}

type CourseCommentReply struct {
	gorm.Model
	CommentID uint
	UserID    uint
	UserName  string
	UserImage string
	Text      string
}
