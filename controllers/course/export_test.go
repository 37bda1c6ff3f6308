package controllers

// ResumeLesson exposes resumeLesson to the external test package.
var ResumeLesson = resumeLesson
